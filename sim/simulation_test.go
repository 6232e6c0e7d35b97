package sim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/romain1189/quartz/eventset"
	"github.com/romain1189/quartz/examples/models"
	"github.com/romain1189/quartz/hooking"
	"github.com/romain1189/quartz/sim"
	"github.com/romain1189/quartz/stateful"
	"github.com/romain1189/quartz/timing"
)

// fanIn is the two-generators-one-receiver topology of the interpretable
// scenarios, either wired directly or through intermediate shells.
type fanIn struct {
	root   *sim.CoupledModel
	g1, g2 *models.Generator
	r      *models.Receiver
}

func directFanIn() fanIn {
	f := fanIn{
		root: sim.NewCoupledModel("root"),
		g1:   models.NewGenerator("g1", second(), "value", 0),
		g2:   models.NewGenerator("g2", second(), "value", 0),
		r:    models.NewReceiver("r"),
	}

	f.root.AddChild(f.g1)
	f.root.AddChild(f.g2)
	f.root.AddChild(f.r)

	Expect(f.root.Attach(f.g1.Out, f.r.In)).To(Succeed())
	Expect(f.root.Attach(f.g2.Out, f.r.In)).To(Succeed())

	return f
}

func nestedFanIn() fanIn {
	f := fanIn{
		root: sim.NewCoupledModel("root"),
		g1:   models.NewGenerator("g1", second(), "value", 0),
		g2:   models.NewGenerator("g2", second(), "value", 0),
		r:    models.NewReceiver("r"),
	}

	gen := sim.NewCoupledModel("gen")
	recv := sim.NewCoupledModel("recv")
	f.root.AddChild(gen)
	f.root.AddChild(recv)

	gen.AddChild(f.g1)
	gen.AddChild(f.g2)
	genOut := gen.AddOutputPort("out")
	Expect(gen.AttachOutput(f.g1.Out, genOut)).To(Succeed())
	Expect(gen.AttachOutput(f.g2.Out, genOut)).To(Succeed())

	recv.AddChild(f.r)
	recvIn := recv.AddInputPort("in")
	Expect(recv.AttachInput(recvIn, f.r.In)).To(Succeed())

	Expect(f.root.Attach(genOut, recvIn)).To(Succeed())

	return f
}

func expectFanInAfterOneStep(f fanIn) {
	Expect(f.r.ExtCalls).To(Equal(1))
	Expect(f.r.IntCalls).To(Equal(0))
	Expect(f.g1.IntCalls).To(Equal(1))
	Expect(f.g2.IntCalls).To(Equal(1))
	Expect(f.g1.OutputCalls).To(Equal(1))
	Expect(f.g2.OutputCalls).To(Equal(1))
	Expect(f.r.Received).To(Equal([]interface{}{"value", "value"}))
	Expect(f.r.LastElapsed.Cmp(second())).To(Equal(0))
}

var _ = Describe("Simulation", func() {
	It("should run the direct fan-in scenario", func() {
		f := directFanIn()
		s := sim.MakeBuilder().WithModel(f.root).Build()

		Expect(s.Step()).To(Succeed())

		expectFanInAfterOneStep(f)

		t1 := timing.MakeTimePoint().Advance(second())
		Expect(s.VirtualTime().Cmp(t1)).To(Equal(0))
	})

	It("should route identically through EOC/EIC shells", func() {
		f := nestedFanIn()
		s := sim.MakeBuilder().WithModel(f.root).Build()

		Expect(s.Step()).To(Succeed())

		expectFanInAfterOneStep(f)
	})

	It("should route identically after flattening", func() {
		f := nestedFanIn()
		s := sim.MakeBuilder().WithModel(f.root).WithFlattenedHierarchy().Build()

		Expect(s.Step()).To(Succeed())

		expectFanInAfterOneStep(f)
	})

	It("should preserve fan-out multiplicity along distinct paths", func() {
		build := func() (*sim.CoupledModel, *models.Receiver) {
			root := sim.NewCoupledModel("root")
			g := models.NewGenerator("g", second(), "value", 0)
			inner := sim.NewCoupledModel("inner")
			r := models.NewReceiver("r")

			root.AddChild(g)
			root.AddChild(inner)
			inner.AddChild(r)

			inA := inner.AddInputPort("inA")
			inB := inner.AddInputPort("inB")
			Expect(inner.AttachInput(inA, r.In)).To(Succeed())
			Expect(inner.AttachInput(inB, r.In)).To(Succeed())
			Expect(root.Attach(g.Out, inA)).To(Succeed())
			Expect(root.Attach(g.Out, inB)).To(Succeed())

			return root, r
		}

		root, r := build()
		s := sim.MakeBuilder().WithModel(root).Build()
		Expect(s.Step()).To(Succeed())
		Expect(r.Received).To(Equal([]interface{}{"value", "value"}))

		flatRoot, flatR := build()
		fs := sim.MakeBuilder().WithModel(flatRoot).
			WithFlattenedHierarchy().Build()
		Expect(fs.Step()).To(Succeed())
		Expect(flatR.Received).To(Equal([]interface{}{"value", "value"}))
	})

	It("should produce identical counters under every scheduler", func() {
		type result struct {
			ext, int1, int2 int
			received        int
		}

		kinds := []eventset.Kind{
			eventset.BinaryHeap,
			eventset.FibonacciHeap,
			eventset.HeapSet,
			eventset.LadderQueue,
			eventset.CalendarQueue,
		}

		var results []result

		for _, kind := range kinds {
			f := nestedFanIn()
			s := sim.MakeBuilder().
				WithModel(f.root).
				WithScheduler(kind).
				WithEndTime(timing.MakeDuration(5, timing.Base)).
				Build()

			Expect(s.Simulate()).To(Succeed())

			results = append(results, result{
				ext:      f.r.ExtCalls,
				int1:     f.g1.IntCalls,
				int2:     f.g2.IntCalls,
				received: len(f.r.Received),
			})
		}

		for _, res := range results[1:] {
			Expect(res).To(Equal(results[0]))
		}

		Expect(results[0].ext).To(Equal(5))
		Expect(results[0].received).To(Equal(10))
	})

	It("should honor a coupled model's preferred event set", func() {
		f := directFanIn()
		f.root.SetPreferredEventSet(eventset.HeapSet)

		s := sim.MakeBuilder().WithModel(f.root).Build()
		Expect(s.Step()).To(Succeed())

		expectFanInAfterOneStep(f)
	})

	It("should advance a mixed-precision pipeline", func() {
		root := sim.NewCoupledModel("pipeline")

		gen := models.NewGenerator(
			"gen", timing.MakeDuration(1, timing.Micro), "job", 3)
		gen.SetPrecision(timing.Micro)

		buf := models.NewBuffer("buf", timing.MakeDuration(2, timing.Micro))
		buf.SetPrecision(timing.Micro)

		cpu := models.NewServer(
			"cpu", timing.MakeDuration(500, timing.Nano))
		cpu.SetPrecision(timing.Nano)

		root.AddChild(gen)
		root.AddChild(buf)
		root.AddChild(cpu)
		Expect(root.Attach(gen.Out, buf.In)).To(Succeed())
		Expect(root.Attach(buf.Out, cpu.In)).To(Succeed())

		s := sim.MakeBuilder().WithModel(root).Build()

		Expect(s.Simulate()).To(Succeed())
		Expect(s.Done()).To(BeTrue())

		Expect(gen.IntCalls).To(Equal(4))
		Expect(buf.Forwarded).To(Equal(3))
		Expect(cpu.Processed).To(Equal(3))
		Expect(gen.State().Get("sent")).To(Equal(4))
	})

	It("should leave passive unconnected models untouched", func() {
		root := sim.NewCoupledModel("root")
		r := models.NewReceiver("idle")
		root.AddChild(r)

		s := sim.MakeBuilder().WithModel(root).Build()

		Expect(s.Simulate()).To(Succeed())
		Expect(r.IntCalls).To(BeZero())
		Expect(r.ExtCalls).To(BeZero())
		Expect(r.ConCalls).To(BeZero())
	})

	It("should keep tl and tn on the transition invariants", func() {
		f := directFanIn()
		s := sim.MakeBuilder().WithModel(f.root).Build()

		Expect(s.Step()).To(Succeed())

		t1 := timing.MakeTimePoint().Advance(second())
		simG := s.SimulatorOf(f.g1)

		Expect(simG.LastTime().Cmp(t1)).To(Equal(0))
		Expect(simG.NextTime().Cmp(t1.Advance(second()))).To(Equal(0))
	})

	It("should stop at the configured end time", func() {
		f := directFanIn()
		s := sim.MakeBuilder().
			WithModel(f.root).
			WithEndTime(timing.MakeDuration(5, timing.Base)).
			Build()

		Expect(s.Simulate()).To(Succeed())

		Expect(f.g1.IntCalls).To(Equal(5))

		t5 := timing.MakeTimePoint().Advance(timing.MakeDuration(5, timing.Base))
		Expect(s.VirtualTime().Cmp(t5)).To(Equal(0))
		Expect(s.ElapsedSeconds()).To(BeNumerically(">=", 0))
	})

	It("should count transitions per model class", func() {
		f := directFanIn()
		s := sim.MakeBuilder().
			WithModel(f.root).
			WithEndTime(timing.MakeDuration(3, timing.Base)).
			Build()

		Expect(s.Simulate()).To(Succeed())

		stats := s.TransitionStats()
		Expect(stats.ByClass["Generator"].Init).To(Equal(uint64(2)))
		Expect(stats.ByClass["Generator"].Internal).To(Equal(uint64(6)))
		Expect(stats.ByClass["Receiver"].External).To(Equal(uint64(3)))
		Expect(stats.Overall.Total()).To(Equal(uint64(12)))
	})

	It("should honor abort at step boundaries", func() {
		f := directFanIn()
		s := sim.MakeBuilder().WithModel(f.root).Build()

		Expect(s.Step()).To(Succeed())
		s.Abort()

		Expect(s.Simulate()).To(Succeed())
		Expect(s.Aborted()).To(BeTrue())
		Expect(f.g1.IntCalls).To(Equal(1))
	})
})

// orderProbe records the global interleaving of output and transition
// calls.
type orderProbe struct {
	*sim.AtomicBase

	Out *sim.Port

	log    *[]string
	period timing.Duration
}

func newOrderProbe(name string, log *[]string) *orderProbe {
	p := &orderProbe{
		AtomicBase: sim.NewAtomicBase(name),
		log:        log,
		period:     second(),
	}

	p.Out = p.AddOutputPort("out")

	return p
}

func (p *orderProbe) TimeAdvance() timing.Duration { return p.period }

func (p *orderProbe) InternalTransition() {
	*p.log = append(*p.log, "int:"+p.Name())
}

func (p *orderProbe) Output() {
	*p.log = append(*p.log, "out:"+p.Name())
	p.Post("tick", p.Out)
}

type orderSink struct {
	*sim.AtomicBase

	In  *sim.Port
	log *[]string
}

func newOrderSink(name string, log *[]string) *orderSink {
	s := &orderSink{AtomicBase: sim.NewAtomicBase(name), log: log}
	s.In = s.AddInputPort("in")

	return s
}

func (s *orderSink) ExternalTransition(sim.Bag) {
	*s.log = append(*s.log, "ext:"+s.Name())
}

var _ = Describe("Transition ordering", func() {
	It("should complete the output wave before any transition", func() {
		var log []string

		root := sim.NewCoupledModel("root")
		a := newOrderProbe("a", &log)
		b := newOrderProbe("b", &log)
		sink := newOrderSink("sink", &log)

		root.AddChild(a)
		root.AddChild(b)
		root.AddChild(sink)
		Expect(root.Attach(a.Out, sink.In)).To(Succeed())
		Expect(root.Attach(b.Out, sink.In)).To(Succeed())

		s := sim.MakeBuilder().WithModel(root).Build()
		Expect(s.Step()).To(Succeed())

		Expect(log).To(Equal([]string{
			"out:a", "out:b", "int:a", "int:b", "ext:sink",
		}))
	})
})

// badPoster posts to a port of another model.
type badPoster struct {
	*sim.AtomicBase

	target *sim.Port
}

func (b *badPoster) TimeAdvance() timing.Duration { return second() }

func (b *badPoster) Output() {
	b.Post("x", b.target)
}

var _ = Describe("Error propagation", func() {
	It("should abort when a model posts to a foreign port", func() {
		root := sim.NewCoupledModel("root")
		g := models.NewGenerator("g", second(), "value", 0)
		bad := &badPoster{
			AtomicBase: sim.NewAtomicBase("bad"),
			target:     g.Out,
		}

		root.AddChild(g)
		root.AddChild(bad)

		s := sim.MakeBuilder().WithModel(root).Build()

		err := s.Step()
		Expect(err).To(BeAssignableToTypeOf(&sim.TransitionError{}))
		Expect(err.(*sim.TransitionError).Model).To(Equal("bad"))
		Expect(s.Aborted()).To(BeTrue())
	})

	It("should reject a state built by another model's type", func() {
		r := models.NewReceiver("r")
		r.DeclareState(stateful.NewType("Receiver").AddField("count", 0))

		Expect(func() {
			r.SetState(models.GeneratorState.New(nil))
		}).To(PanicWith(BeAssignableToTypeOf(&sim.InvalidStateError{})))
	})

	It("should reject a subclass state on the parent slot", func() {
		parentType := stateful.NewType("Receiver").AddField("count", 0)
		childType := parentType.Extend("LoggingReceiver")

		r := models.NewReceiver("r")
		r.DeclareState(parentType)

		Expect(func() {
			r.SetState(childType.New(nil))
		}).To(PanicWith(BeAssignableToTypeOf(&sim.InvalidStateError{})))

		r.SetState(parentType.New(nil))
		Expect(r.State().Get("count")).To(Equal(0))
	})

	It("should reject driving a model through two processors", func() {
		g := models.NewGenerator("g", second(), "value", 0)

		rootA := sim.NewCoupledModel("rootA")
		rootA.AddChild(g)
		sa := sim.MakeBuilder().WithModel(rootA).Build()
		Expect(sa.Step()).To(Succeed())

		rootB := sim.NewCoupledModel("rootB")
		rootB.AddChild(g)
		sb := sim.MakeBuilder().WithModel(rootB).Build()

		Expect(func() { sb.Step() }).To(PanicWith(
			BeAssignableToTypeOf(&sim.InvalidProcessorError{})))
	})
})

// observerRecord captures observer updates.
type observerRecord struct {
	kinds []hooking.TransitionKind
}

func (o *observerRecord) Update(_ interface{}, info hooking.TransitionInfo) {
	o.kinds = append(o.kinds, info.Transition)
}

var _ = Describe("Model observation", func() {
	It("should notify observers of every transition kind", func() {
		f := directFanIn()

		gObs := &observerRecord{}
		rObs := &observerRecord{}
		f.g1.AddObserver(gObs)
		f.r.AddObserver(rObs)

		s := sim.MakeBuilder().WithModel(f.root).Build()
		Expect(s.Step()).To(Succeed())

		Expect(gObs.kinds).To(Equal([]hooking.TransitionKind{
			hooking.TransitionInit,
			hooking.TransitionInternal,
		}))
		Expect(rObs.kinds).To(Equal([]hooking.TransitionKind{
			hooking.TransitionInit,
			hooking.TransitionExternal,
		}))
	})

	It("should observe values on atomic output ports", func() {
		f := directFanIn()

		var seen []interface{}
		Expect(f.g1.Out.AddObserver(portProbe{&seen})).To(Succeed())

		s := sim.MakeBuilder().WithModel(f.root).Build()
		Expect(s.Step()).To(Succeed())

		Expect(seen).To(Equal([]interface{}{"value"}))
	})
})

type portProbe struct {
	seen *[]interface{}
}

func (p portProbe) Update(target interface{}, _ hooking.TransitionInfo) {
	*p.seen = append(*p.seen, target)
}
