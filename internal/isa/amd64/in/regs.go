// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package in

import (
	"gate.computer/safepoint/isa/reg"
)

const (
	RegStack   = reg.R(4)
	RegFrame   = reg.R(5)
	RegScratch = reg.R(11)
)
