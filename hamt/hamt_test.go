package hamt_test

import (
	"fmt"

	"github.com/corehive/corehive/domain"
	"github.com/corehive/corehive/hamt"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// identityKey hashes to its own value, letting tests pin exactly which
// trie bucket a key lands in instead of trusting xxhash's distribution.
type identityKey int64

func (k identityKey) HashCode() (uint64, error) { return uint64(k), nil }

func (k identityKey) Equal(other hamt.Key) (bool, error) {
	o, ok := other.(identityKey)
	if !ok {
		return false, nil
	}
	return k == o, nil
}

// sameHashKey always reports the same hash code, forcing every instance
// into one collision node regardless of tag.
type sameHashKey struct{ tag int }

func (sameHashKey) HashCode() (uint64, error) { return 0xC0FFEE, nil }

func (k sameHashKey) Equal(other hamt.Key) (bool, error) {
	o, ok := other.(sameHashKey)
	if !ok {
		return false, nil
	}
	return k.tag == o.tag, nil
}

var _ = Describe("Map", func() {
	var self domain.ID

	BeforeEach(func() {
		self = domain.New("hamt-test")
	})

	It("rejects a missing key with ErrNoSuchKey", func() {
		m := hamt.New[identityKey, string](self, nil)
		_, err := m.Get(identityKey(1))
		Expect(err).To(MatchError(hamt.ErrNoSuchKey))
	})

	It("round-trips a single assoc", func() {
		m := hamt.New[identityKey, string](self, nil)
		m2, err := m.Assoc(identityKey(7), "seven")
		Expect(err).NotTo(HaveOccurred())
		Expect(m2.Len()).To(Equal(1))
		Expect(m.Len()).To(Equal(0), "original Map must stay untouched")

		v, err := m2.Get(identityKey(7))
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("seven"))
	})

	It("promotes a bitmap node to an array node at the 17th colliding entry", func() {
		m := hamt.New[identityKey, int](self, nil)
		var err error
		// Every key here shares mask bits at shift 0 (multiples of 32),
		// so all 17 land in the same root-level bucket.
		for i := 0; i < 17; i++ {
			m, err = m.Assoc(identityKey(i*32), i)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(m.Len()).To(Equal(17))
		for i := 0; i < 17; i++ {
			v, err := m.Get(identityKey(i * 32))
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(i))
		}
	})

	It("builds a collision node for keys with equal hashes and unequal identity", func() {
		m := hamt.New[sameHashKey, string](self, nil)
		m1, err := m.Assoc(sameHashKey{tag: 1}, "a")
		Expect(err).NotTo(HaveOccurred())
		m2, err := m1.Assoc(sameHashKey{tag: 2}, "b")
		Expect(err).NotTo(HaveOccurred())
		Expect(m2.Len()).To(Equal(2))

		v1, err := m2.Get(sameHashKey{tag: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(v1).To(Equal("a"))
		v2, err := m2.Get(sameHashKey{tag: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(v2).To(Equal("b"))
	})

	It("inlines a collision node back to a leaf once only one pair remains", func() {
		m := hamt.New[sameHashKey, string](self, nil)
		m, _ = m.Assoc(sameHashKey{tag: 1}, "a")
		m, _ = m.Assoc(sameHashKey{tag: 2}, "b")
		Expect(m.Len()).To(Equal(2))

		m, err := m.Without(sameHashKey{tag: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Len()).To(Equal(1))

		v, err := m.Get(sameHashKey{tag: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("a"))

		_, err = m.Get(sameHashKey{tag: 2})
		Expect(err).To(MatchError(hamt.ErrNoSuchKey))
	})

	It("demotes an array node back to a bitmap node as entries are removed", func() {
		m := hamt.New[identityKey, int](self, nil)
		keys := make([]identityKey, 20)
		for i := range keys {
			keys[i] = identityKey(i)
			var err error
			m, err = m.Assoc(keys[i], i)
			Expect(err).NotTo(HaveOccurred())
		}
		for i := 0; i < 15; i++ {
			var err error
			m, err = m.Without(keys[i])
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(m.Len()).To(Equal(5))
		for i := 15; i < 20; i++ {
			v, err := m.Get(keys[i])
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(i))
		}
	})

	It("removing an absent key returns the same Map untouched", func() {
		m := hamt.New[identityKey, string](self, nil)
		m, _ = m.Assoc(identityKey(1), "a")
		m2, err := m.Without(identityKey(999))
		Expect(err).NotTo(HaveOccurred())
		Expect(m2).To(BeIdenticalTo(m))
	})

	It("Iter visits every pair exactly once", func() {
		m := hamt.New[identityKey, int](self, nil)
		const n = 200
		for i := 0; i < n; i++ {
			var err error
			m, err = m.Assoc(identityKey(i), i*i)
			Expect(err).NotTo(HaveOccurred())
		}
		seen := map[int64]int{}
		it := m.Iter()
		for {
			k, v, ok := it.Next()
			if !ok {
				break
			}
			seen[int64(k)] = v
		}
		Expect(seen).To(HaveLen(n))
		for i := 0; i < n; i++ {
			Expect(seen[int64(i)]).To(Equal(i * i))
		}
	})

	It("Equal and Hash agree regardless of insertion order", func() {
		a := hamt.New[identityKey, int](self, nil)
		b := hamt.New[identityKey, int](self, nil)
		for i := 0; i < 10; i++ {
			a, _ = a.Assoc(identityKey(i), i)
		}
		for i := 9; i >= 0; i-- {
			b, _ = b.Assoc(identityKey(i), i)
		}
		eqFn := func(x, y int) bool { return x == y }
		eq, err := a.Equal(b, eqFn)
		Expect(err).NotTo(HaveOccurred())
		Expect(eq).To(BeTrue())

		hv := func(v int) (uint64, error) { return uint64(v), nil }
		ha, err := a.Hash(hv)
		Expect(err).NotTo(HaveOccurred())
		hb, err := b.Hash(hv)
		Expect(err).NotTo(HaveOccurred())
		Expect(ha).To(Equal(hb))
	})

	Describe("Mutation batches", func() {
		It("mutates in place within one batch, leaving the source Map untouched", func() {
			base := hamt.New[identityKey, int](self, nil)
			for i := 0; i < 5; i++ {
				base, _ = base.Assoc(identityKey(i), i)
			}
			result, err := base.Do(func(mu *hamt.Mutation[identityKey, int]) error {
				for i := 5; i < 10; i++ {
					if err := mu.Set(identityKey(i), i); err != nil {
						return err
					}
				}
				return mu.Pop(identityKey(0))
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Len()).To(Equal(9))
			Expect(base.Len()).To(Equal(5), "base Map must be unaffected by a finished batch")

			_, err = result.Get(identityKey(0))
			Expect(err).To(MatchError(hamt.ErrNoSuchKey))
		})

		It("rejects further use once Finish has been called", func() {
			base := hamt.New[identityKey, int](self, nil)
			mu := base.Mutate()
			_, err := mu.Finish()
			Expect(err).NotTo(HaveOccurred())

			err = mu.Set(identityKey(1), 1)
			Expect(err).To(MatchError(hamt.ErrUseAfterFinalize))
		})

		It("propagates an f error from Do without producing a Map", func() {
			base := hamt.New[identityKey, int](self, nil)
			boom := fmt.Errorf("boom")
			result, err := base.Do(func(mu *hamt.Mutation[identityKey, int]) error {
				if err := mu.Set(identityKey(1), 1); err != nil {
					return err
				}
				return boom
			})
			Expect(err).To(MatchError(boom))
			Expect(result).To(BeNil())
		})

		It("Update rewrites an existing value via the read-modify-write helper", func() {
			base := hamt.New[identityKey, int](self, nil)
			base, _ = base.Assoc(identityKey(1), 10)
			result, err := base.Do(func(mu *hamt.Mutation[identityKey, int]) error {
				return mu.Update(identityKey(1), func(v int) (int, error) { return v + 1, nil })
			})
			Expect(err).NotTo(HaveOccurred())
			v, err := result.Get(identityKey(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(11))
		})
	})
})
