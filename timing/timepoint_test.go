package timing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TimePoint", func() {
	It("should start at the origin", func() {
		t := MakeTimePoint()

		Expect(t.IsZero()).To(BeTrue())
		Expect(t.Infinite()).To(BeFalse())
	})

	It("should advance by a duration", func() {
		t := MakeTimePoint().Advance(MakeDuration(2, Base))

		Expect(t.Seconds()).To(BeNumerically("==", 2))
		Expect(t.AdvanceScale()).To(Equal(Base))
	})

	It("should refine its precision when advanced by a finer duration", func() {
		t := MakeTimePoint().
			Advance(MakeDuration(2, Base)).
			Advance(MakeDuration(500, Milli))

		Expect(t.Seconds()).To(BeNumerically("~", 2.5, 1e-12))
		Expect(t.Precision()).To(Equal(Milli))
		Expect(t.AdvanceScale()).To(Equal(Milli))
	})

	It("should carry across digit groups", func() {
		t := MakeTimePoint()
		for i := 0; i < 1000; i++ {
			t = t.Advance(MakeDuration(1, Milli))
		}

		Expect(t.Cmp(MakeTimePoint().Advance(MakeDuration(1, Base)))).To(Equal(0))
	})

	It("should recover the advance as a duration", func() {
		t0 := MakeTimePoint().Advance(MakeDuration(1, Base))
		t1 := t0.Advance(MakeDuration(1500, Milli))

		d := t1.Diff(t0)

		Expect(d.Cmp(MakeDuration(1500, Milli))).To(Equal(0))
		Expect(d.Precision()).To(Equal(Milli))
	})

	It("should produce negative differences for earlier minuends", func() {
		t0 := MakeTimePoint()
		t1 := t0.Advance(MakeDuration(3, Micro))

		Expect(t0.Diff(t1).Cmp(MakeDuration(-3, Micro))).To(Equal(0))
	})

	It("should compare points across precisions", func() {
		a := MakeTimePoint().Advance(MakeDuration(2, Base))
		b := MakeTimePoint().Advance(MakeDuration(2000, Milli))
		c := MakeTimePoint().Advance(MakeDuration(2001, Milli))

		Expect(a.Cmp(b)).To(Equal(0))
		Expect(a.Equal(b)).To(BeTrue())
		Expect(a.Cmp(c)).To(Equal(-1))
		Expect(c.Cmp(a)).To(Equal(1))
	})

	It("should share a canonical key across equal representations", func() {
		a := MakeTimePoint().Advance(MakeDuration(2, Base))
		b := MakeTimePoint().
			Advance(MakeDuration(1999, Milli)).
			Advance(MakeDuration(1, Milli))

		Expect(a.Key()).To(Equal(b.Key()))
		Expect(MakeTimePoint().Key()).To(Equal("0"))
	})

	It("should treat the unreachable point as later than any finite point", func() {
		far := MakeTimePoint().Advance(MakeDuration(999, Peta))

		Expect(InfinityPoint().Cmp(far)).To(Equal(1))
		Expect(far.Cmp(InfinityPoint())).To(Equal(-1))
		Expect(InfinityPoint().Cmp(InfinityPoint())).To(Equal(0))
	})

	It("should become unreachable when advanced by infinity", func() {
		t := MakeTimePoint().Advance(Infinity)

		Expect(t.Infinite()).To(BeTrue())
		Expect(t.Advance(MakeDuration(1, Base)).Infinite()).To(BeTrue())
	})

	It("should yield an infinite difference against the unreachable point", func() {
		t := MakeTimePoint().Advance(MakeDuration(1, Base))

		Expect(InfinityPoint().Diff(t).Infinite()).To(BeTrue())
		Expect(t.Diff(InfinityPoint()).Infinite()).To(BeTrue())
		Expect(t.Diff(InfinityPoint()).Multiplier()).To(BeNumerically("<", 0))
	})

	It("should reject advancing backwards", func() {
		Expect(func() {
			MakeTimePoint().Advance(MakeDuration(-1, Base))
		}).To(Panic())
	})

	It("should advance through widely separated scales", func() {
		t := MakeTimePoint().
			Advance(MakeDuration(1, Tera)).
			Advance(MakeDuration(1, Nano))

		Expect(t.Precision()).To(Equal(Nano))
		Expect(t.Diff(MakeTimePoint()).Finite()).To(BeTrue())
		Expect(t.Cmp(MakeTimePoint().Advance(MakeDuration(1, Tera)))).To(Equal(1))
	})
})
