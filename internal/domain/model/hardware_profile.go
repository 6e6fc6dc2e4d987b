/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

// HardwareProfile holds what the network knows about a validator's machine:
// its architecture for bucket classification and the serial values it
// registered, one per serial type, checked during challenge rounds.
type HardwareProfile struct {
	Validator  string
	DeviceArch string
	Serials    map[SerialType]string
	CreatedAt  int64
}

// Serial returns the registered value for the given serial type, or the
// empty string when the validator never registered one.
func (p *HardwareProfile) Serial(t SerialType) string {
	if p == nil || p.Serials == nil {
		return ""
	}
	return p.Serials[t]
}
