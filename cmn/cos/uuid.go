/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"sync"
	"time"

	"github.com/teris-io/shortid"
)

// Alphabet for generating printable ids, mirroring shortid.DEFAULT_ABC.
const uuidABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

var (
	sidOnce sync.Once
	sid     *shortid.Shortid
)

func initShortID() {
	sid = shortid.MustNew(1, uuidABC, uint64(time.Now().UnixNano()))
}

// GenUUID returns a short, printable, collision-resistant token used to make
// domain ids and correlation ids human-readable in log lines. The numeric
// id remains canonical (see package domain); this is a display aid only.
func GenUUID() string {
	sidOnce.Do(initShortID)
	return sid.MustGenerate()
}
