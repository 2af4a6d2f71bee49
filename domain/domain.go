// Package domain assigns the domain ids that every long-lived corehive
// entity (HAMT node, Map, Hub, Worker) stamps itself with. A domain id is
// the canonical test for "is this object local to me?"
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package domain

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/corehive/corehive/cmn/cos"
)

// ID identifies one isolated execution domain. Zero is never issued by New,
// so a zero-value ID reliably means "not yet assigned" to callers that
// embed ID in a zero-valued struct.
type ID uint32

var next uint32 // atomic counter; ids are never reused

type entry struct {
	name  string
	token string
}

var (
	mu       sync.RWMutex
	registry = map[ID]entry{}
)

// New allocates a fresh domain id and registers name for diagnostics. name
// may be empty; a printable token is always generated so log lines never
// have to print a bare integer.
func New(name string) ID {
	id := ID(atomic.AddUint32(&next, 1))
	tok := cos.GenUUID()
	mu.Lock()
	registry[id] = entry{name: name, token: tok}
	mu.Unlock()
	return id
}

// Describe returns the diagnostic name registered for id, or ok=false if id was never allocated via New (or has been
// forgotten via Forget).
func Describe(id ID) (name string, ok bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := registry[id]
	return e.name, ok
}

// Forget drops id's diagnostic entry. It does not and cannot un-issue the
// id: domain ids are never reused.
func Forget(id ID) {
	mu.Lock()
	delete(registry, id)
	mu.Unlock()
}

// String renders "name(token)#id" when registered with a name, "token#id"
// when registered with an empty name, else "domain#id".
func (id ID) String() string {
	mu.RLock()
	e, ok := registry[id]
	mu.RUnlock()
	if !ok {
		return fmt.Sprintf("domain#%d", uint32(id))
	}
	if e.name != "" {
		return fmt.Sprintf("%s(%s)#%d", e.name, e.token, uint32(id))
	}
	return fmt.Sprintf("%s#%d", e.token, uint32(id))
}
