// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/omec-project/slicemanager/logger"
	"github.com/omec-project/slicemanager/service"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var SliceMgr = &service.SliceMgr{}

var appLog *zap.SugaredLogger

func init() {
	appLog = logger.AppLog
}

func main() {
	app := cli.NewApp()
	app.Name = "slicemanager"
	appLog.Infoln(app.Name)
	app.Usage = "-cfg slice manager configuration file"
	app.Action = action
	app.Flags = SliceMgr.GetCliCmd()
	if err := app.Run(os.Args); err != nil {
		appLog.Errorf("slice manager run Error: %v", err)
	}
}

func action(c *cli.Context) error {
	if err := SliceMgr.Initialize(c); err != nil {
		logger.CfgLog.Errorf("%+v", err)
		return fmt.Errorf("failed to initialize")
	}

	SliceMgr.Start()

	return nil
}
