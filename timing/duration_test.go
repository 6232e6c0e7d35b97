package timing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Scale", func() {
	It("should convert to a factor", func() {
		Expect(Milli.Factor()).To(BeNumerically("~", 1e-3, 1e-18))
		Expect(Kilo.Factor()).To(BeNumerically("==", 1000))
		Expect(Base.Factor()).To(BeNumerically("==", 1))
	})

	It("should combine under product and quotient", func() {
		Expect(Milli.Times(Milli)).To(Equal(Micro))
		Expect(Kilo.Quotient(Milli)).To(Equal(Mega))
	})

	It("should order scales", func() {
		Expect(Nano.Finer(Micro)).To(BeTrue())
		Expect(Kilo.Coarser(Base)).To(BeTrue())
	})
})

var _ = Describe("Duration", func() {
	It("should be finite xor infinite", func() {
		d := MakeDuration(5, Base)
		Expect(d.Finite()).NotTo(Equal(d.Infinite()))

		Expect(Infinity.Finite()).NotTo(Equal(Infinity.Infinite()))
		Expect(Infinity.Infinite()).To(BeTrue())
	})

	It("should preserve quantity under add then sub", func() {
		a := MakeDuration(2, Base)
		b := MakeDuration(750, Milli)

		Expect(a.Add(b).Sub(b).Cmp(a)).To(Equal(0))
	})

	It("should add across precisions at the finer one", func() {
		d := MakeDuration(2, Base)
		e := MakeDuration(500, Milli)

		sum := d.Add(e)

		Expect(sum.Multiplier()).To(BeNumerically("==", 2500))
		Expect(sum.Precision()).To(Equal(Milli))
		Expect(sum.Cmp(MakeDuration(2500, Milli))).To(Equal(0))
	})

	It("should consider rescaled quantities equal under Cmp", func() {
		a := MakeDuration(2500, Milli)
		b := MakeDuration(2500, Milli).Rescale(Milli)

		Expect(a.Cmp(b)).To(Equal(0))
		Expect(MakeDuration(2500, Milli).Cmp(MakeDuration(2, Base))).To(Equal(1))
	})

	It("should require identical multiplier and precision for Equals", func() {
		a := MakeDuration(2000, Milli)
		b := a.Rescale(Base)

		Expect(a.Cmp(b)).To(Equal(0))
		Expect(a.Equals(b)).To(BeFalse())
		Expect(a.Equals(MakeDuration(2000, Milli))).To(BeTrue())
	})

	It("should preserve quantity for unfixed *0.001 then *1000", func() {
		a := MakeDuration(7, Base)

		b := a.Mul(0.001).Mul(1000)

		Expect(b.Cmp(a)).To(Equal(0))
	})

	It("should refine precision when scaling down unfixed", func() {
		a := MakeDuration(1, Base)

		b := a.Mul(0.5)

		Expect(b.Multiplier()).To(BeNumerically("==", 500))
		Expect(b.Precision()).To(Equal(Milli))
	})

	It("should coarsen precision on overflow", func() {
		a := MakeDuration(999_999_999_999_999, Base)

		b := a.Mul(1000)

		Expect(b.Finite()).To(BeTrue())
		Expect(b.Precision()).To(Equal(Kilo))
	})

	It("should round fixed multiplication away from zero on ties", func() {
		a := MakeFixedDuration(5, Base)

		Expect(a.Mul(0.5).Multiplier()).To(BeNumerically("==", 3))
		Expect(a.Mul(-0.5).Multiplier()).To(BeNumerically("==", -3))
		Expect(a.Mul(0.5).Precision()).To(Equal(Base))
	})

	It("should reject adding fixed durations of different precisions", func() {
		a := MakeFixedDuration(1, Base)
		b := MakeFixedDuration(1, Milli)

		Expect(func() { a.Add(b) }).To(PanicWith(BeAssignableToTypeOf(
			&BadSynchronisationError{})))
	})

	It("should add fixed durations after rescaling to a common precision", func() {
		a := MakeFixedDuration(1, Base)
		b := MakeFixedDuration(250, Milli)

		sum := a.Add(b.Rescale(Base).Fix())
		Expect(sum.Fixed()).To(BeTrue())
		Expect(sum.Precision()).To(Equal(Base))

		aligned := a.Rescale(Milli).Add(b)
		Expect(aligned.Multiplier()).To(BeNumerically("==", 1250))
		Expect(aligned.Precision()).To(Equal(Milli))
	})

	It("should align a mixed add to the fixed side", func() {
		a := MakeFixedDuration(2, Base)
		b := MakeDuration(500, Milli)

		sum := a.Add(b)

		Expect(sum.Fixed()).To(BeTrue())
		Expect(sum.Precision()).To(Equal(Base))
		Expect(sum.Multiplier()).To(BeNumerically("==", 3))
	})

	It("should propagate infinity without coarsening", func() {
		d := MakeDuration(5, Nano)

		sum := d.Add(Inf(Nano))

		Expect(sum.Infinite()).To(BeTrue())
		Expect(sum.Precision()).To(Equal(Nano))
		Expect(Inf(Base).Mul(2).Infinite()).To(BeTrue())
	})

	It("should reject NaN-producing arithmetic", func() {
		Expect(func() { Inf(Base).Add(Inf(Base).Neg()) }).To(PanicWith(
			BeAssignableToTypeOf(&ArithmeticError{})))
		Expect(func() { MakeDuration(1, Base).Mul(nan()) }).To(PanicWith(
			BeAssignableToTypeOf(&ArithmeticError{})))
	})

	It("should construct from decimal fractions", func() {
		d := FromSeconds(0.002)

		Expect(d.Multiplier()).To(BeNumerically("==", 2))
		Expect(d.Precision()).To(Equal(Milli))
	})

	It("should compute pure floating-point ratios", func() {
		a := MakeDuration(3, Base)
		b := MakeDuration(500, Milli)

		Expect(a.Ratio(b)).To(BeNumerically("~", 6, 1e-9))
	})

	It("should round trip through JSON", func() {
		d := MakeDuration(1500, Milli)

		data, err := d.MarshalJSON()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(MatchJSON(`{"multiplier":1500,"precision":-1}`))

		var e Duration
		Expect(e.UnmarshalJSON(data)).To(Succeed())
		Expect(e.Equals(d)).To(BeTrue())

		data, err = Infinity.MarshalJSON()
		Expect(err).NotTo(HaveOccurred())

		var inf Duration
		Expect(inf.UnmarshalJSON(data)).To(Succeed())
		Expect(inf.Infinite()).To(BeTrue())
	})
})

func nan() float64 {
	var zero float64
	return zero / zero
}
