package cos_test

import (
	"errors"

	"github.com/corehive/corehive/cmn/cos"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("atomics", func() {
	It("Uint64 adds and loads", func() {
		var u cos.Uint64
		Expect(u.Inc()).To(Equal(uint64(1)))
		Expect(u.Add(41)).To(Equal(uint64(42)))
		Expect(u.Load()).To(Equal(uint64(42)))
	})

	It("Bool CAS only flips on match", func() {
		var b cos.Bool
		Expect(b.CAS(true, false)).To(BeFalse())
		Expect(b.CAS(false, true)).To(BeTrue())
		Expect(b.Load()).To(BeTrue())
	})
})

var _ = Describe("GenUUID", func() {
	It("produces distinct non-empty tokens", func() {
		a, b := cos.GenUUID(), cos.GenUUID()
		Expect(a).NotTo(BeEmpty())
		Expect(a).NotTo(Equal(b))
	})
})

var _ = Describe("Errs", func() {
	It("dedupes by message", func() {
		var e cos.Errs
		for i := 0; i < 20; i++ {
			e.Add(errors.New("boom"))
		}
		Expect(e.Len()).To(Equal(1))
	})
})
