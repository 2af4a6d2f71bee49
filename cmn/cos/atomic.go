// Package cos provides the common low-level types and utilities shared by
// every corehive package: atomics, id generation, and the error helper
// types used to build the packages' sentinel errors.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import "sync/atomic"

type (
	Bool   struct{ v int32 }
	Uint32 struct{ v uint32 }
	Uint64 struct{ v uint64 }
	Int64  struct{ v int64 }
)

func (b *Bool) Load() bool { return atomic.LoadInt32(&b.v) != 0 }
func (b *Bool) Store(v bool) {
	i := int32(0)
	if v {
		i = 1
	}
	atomic.StoreInt32(&b.v, i)
}
func (b *Bool) CAS(old, new bool) bool {
	o, n := int32(0), int32(0)
	if old {
		o = 1
	}
	if new {
		n = 1
	}
	return atomic.CompareAndSwapInt32(&b.v, o, n)
}

func (u *Uint32) Load() uint32          { return atomic.LoadUint32(&u.v) }
func (u *Uint32) Store(v uint32)        { atomic.StoreUint32(&u.v, v) }
func (u *Uint32) Add(delta uint32) uint32 { return atomic.AddUint32(&u.v, delta) }
func (u *Uint32) Inc() uint32            { return u.Add(1) }

func (u *Uint64) Load() uint64            { return atomic.LoadUint64(&u.v) }
func (u *Uint64) Store(v uint64)          { atomic.StoreUint64(&u.v, v) }
func (u *Uint64) Add(delta uint64) uint64 { return atomic.AddUint64(&u.v, delta) }
func (u *Uint64) Inc() uint64             { return u.Add(1) }

func (i *Int64) Load() int64            { return atomic.LoadInt64(&i.v) }
func (i *Int64) Store(v int64)          { atomic.StoreInt64(&i.v, v) }
func (i *Int64) Add(delta int64) int64  { return atomic.AddInt64(&i.v, delta) }
func (i *Int64) Inc() int64             { return i.Add(1) }
func (i *Int64) Dec() int64             { return i.Add(-1) }
