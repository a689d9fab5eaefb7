// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Program wagobj inspects object files produced by the compiler.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	logger := &logrus.Logger{
		Out:       os.Stderr,
		Formatter: new(logrus.TextFormatter),
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
	}

	if err := newRootCommand(logger).cmd.Execute(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
