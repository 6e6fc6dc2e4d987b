/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import (
	"github.com/fxamacker/cbor/v2"
)

// canonicalEnc is the core-deterministic CBOR encoder used for every byte
// string that gets hashed or signed. Both ends of the wire must agree on
// these bytes, so ad hoc cbor.Marshal is not acceptable here.
var canonicalEnc cbor.EncMode

func init() {
	var err error
	canonicalEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// CanonicalMarshal encodes v with the deterministic encoding profile.
func CanonicalMarshal(v any) ([]byte, error) {
	return canonicalEnc.Marshal(v)
}
