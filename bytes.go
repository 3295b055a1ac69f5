// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import (
	"strconv"
)

// Bytes is a number of bytes, used for packet sizes, queue capacities and
// byte-accounted throughput/loss series.
type Bytes uint64

func (b Bytes) String() string {
	return strconv.FormatUint(uint64(b), 10)
}

// BitsPerSecond is a bit rate, used for GBR/MBR values.
type BitsPerSecond uint64

func (r BitsPerSecond) String() string {
	return strconv.FormatUint(uint64(r), 10)
}
