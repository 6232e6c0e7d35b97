package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/romain1189/quartz/timing"
)

type recordingHook struct {
	positions []string
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.positions = append(h.positions, ctx.Pos.Name)
}

type panickingHook struct{}

func (panickingHook) Func(HookCtx) {
	panic("observer failure")
}

var _ = Describe("HookableBase", func() {
	var (
		hb   *HookableBase
		hook *recordingHook
	)

	BeforeEach(func() {
		hb = &HookableBase{}
		hook = &recordingHook{}
	})

	It("should invoke registered hooks in order", func() {
		hb.AcceptHook(hook)

		hb.InvokeHook(HookCtx{Pos: HookPosPreStep})
		hb.InvokeHook(HookCtx{Pos: HookPosPostStep})

		Expect(hook.positions).To(Equal([]string{"PreStep", "PostStep"}))
	})

	It("should reject duplicated hooks", func() {
		hb.AcceptHook(hook)

		Expect(func() { hb.AcceptHook(hook) }).To(Panic())
		Expect(hb.NumHooks()).To(Equal(1))
	})

	It("should contain hook failures and keep invoking later hooks", func() {
		hb.AcceptHook(panickingHook{})
		hb.AcceptHook(hook)

		Expect(func() {
			hb.InvokeHook(HookCtx{Pos: HookPosPostStep})
		}).NotTo(Panic())
		Expect(hook.positions).To(Equal([]string{"PostStep"}))
	})
})

type recordingObserver struct {
	targets []interface{}
	infos   []TransitionInfo
}

func (o *recordingObserver) Update(target interface{}, info TransitionInfo) {
	o.targets = append(o.targets, target)
	o.infos = append(o.infos, info)
}

var _ = Describe("ObserverHook", func() {
	It("should forward transition details to the observer", func() {
		o := &recordingObserver{}
		h := ObserverHook{Observer: o}

		info := TransitionInfo{
			Time:       timing.MakeTimePoint(),
			Transition: TransitionExternal,
		}
		h.Func(HookCtx{Pos: HookPosTransition, Item: "model", Detail: info})

		Expect(o.targets).To(ConsistOf("model"))
		Expect(o.infos[0].Transition).To(Equal(TransitionExternal))
		Expect(o.infos[0].Transition.String()).To(Equal("external"))
	})

	It("should ignore contexts without transition details", func() {
		o := &recordingObserver{}
		h := ObserverHook{Observer: o}

		h.Func(HookCtx{Pos: HookPosPreStep})

		Expect(o.targets).To(BeEmpty())
	})
})
