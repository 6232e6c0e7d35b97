package sim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/romain1189/quartz/examples/models"
	"github.com/romain1189/quartz/hooking"
	"github.com/romain1189/quartz/sim"
	"github.com/romain1189/quartz/timing"
)

func second() timing.Duration {
	return timing.MakeDuration(1, timing.Base)
}

type nullObserver struct{}

func (nullObserver) Update(interface{}, hooking.TransitionInfo) {}

var _ = Describe("CoupledModel", func() {
	var (
		parent *sim.CoupledModel
		g      *models.Generator
		r      *models.Receiver
	)

	BeforeEach(func() {
		parent = sim.NewCoupledModel("parent")
		g = models.NewGenerator("g", second(), "value", 0)
		r = models.NewReceiver("r")
		parent.AddChild(g)
		parent.AddChild(r)
	})

	It("should classify child-to-child couplings as IC", func() {
		Expect(parent.Attach(g.Out, r.In)).To(Succeed())

		ics := parent.InternalCouplings()
		Expect(ics).To(HaveLen(1))
		Expect(ics[0].Kind).To(Equal(sim.IC))
		Expect(ics[0].Kind.String()).To(Equal("IC"))
	})

	It("should classify parent-input-to-child couplings as EIC", func() {
		in := parent.AddInputPort("in")

		Expect(parent.AttachInput(in, r.In)).To(Succeed())

		eics := parent.ExternalInputCouplings()
		Expect(eics).To(HaveLen(1))
		Expect(eics[0].Kind).To(Equal(sim.EIC))
	})

	It("should classify child-to-parent-output couplings as EOC", func() {
		out := parent.AddOutputPort("out")

		Expect(parent.AttachOutput(g.Out, out)).To(Succeed())

		eocs := parent.ExternalOutputCouplings()
		Expect(eocs).To(HaveLen(1))
		Expect(eocs[0].Kind).To(Equal(sim.EOC))
	})

	It("should reject coupling a port to itself", func() {
		in := parent.AddInputPort("in")

		err := parent.Attach(in, in)
		Expect(err).To(BeAssignableToTypeOf(&sim.FeedbackCouplingError{}))
	})

	It("should reject couplings between two parent ports", func() {
		in := parent.AddInputPort("in")
		out := parent.AddOutputPort("out")

		err := parent.Attach(in, out)
		Expect(err).To(BeAssignableToTypeOf(&sim.FeedbackCouplingError{}))
	})

	It("should reject couplings with the wrong polarity", func() {
		err := parent.Attach(r.In, g.Out)
		Expect(err).To(BeAssignableToTypeOf(&sim.InvalidCouplingError{}))
	})

	It("should reject couplings across non-sibling boundaries", func() {
		other := sim.NewCoupledModel("other")
		stranger := models.NewReceiver("stranger")
		other.AddChild(stranger)

		err := parent.Attach(g.Out, stranger.In)
		Expect(err).To(BeAssignableToTypeOf(&sim.InvalidCouplingError{}))
	})

	It("should treat duplicate couplings as idempotent", func() {
		Expect(parent.Attach(g.Out, r.In)).To(Succeed())
		Expect(parent.Attach(g.Out, r.In)).To(Succeed())

		Expect(parent.InternalCouplings()).To(HaveLen(1))
	})

	It("should reject duplicated child names", func() {
		Expect(func() {
			parent.AddChild(models.NewReceiver("r"))
		}).To(Panic())
	})

	It("should look up ports by name", func() {
		p, err := g.OutputPort("out")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeIdenticalTo(g.Out))

		_, err = g.OutputPort("bogus")
		Expect(err).To(BeAssignableToTypeOf(&sim.NoSuchPortError{}))

		_, err = r.InputPort("bogus")
		Expect(err).To(BeAssignableToTypeOf(&sim.NoSuchPortError{}))
	})
})

var _ = Describe("Port observation", func() {
	It("should accept observers on atomic output ports only", func() {
		parent := sim.NewCoupledModel("parent")
		g := models.NewGenerator("g", second(), "value", 0)
		r := models.NewReceiver("r")
		parent.AddChild(g)
		parent.AddChild(r)
		out := parent.AddOutputPort("out")

		Expect(g.Out.AddObserver(nullObserver{})).To(Succeed())

		err := r.In.AddObserver(nullObserver{})
		Expect(err).To(BeAssignableToTypeOf(&sim.UnobservablePortError{}))

		err = out.AddObserver(nullObserver{})
		Expect(err).To(BeAssignableToTypeOf(&sim.UnobservablePortError{}))
	})
})
