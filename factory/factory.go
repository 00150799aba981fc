// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package factory

import (
	"fmt"
	"os"

	"github.com/omec-project/slicemanager/logger"
	"gopkg.in/yaml.v2"
)

var SliceMgrConfig Config

func InitConfigFactory(f string) error {
	content, err := os.ReadFile(f)
	if err != nil {
		return err
	}

	SliceMgrConfig = Config{}
	if err = yaml.Unmarshal(content, &SliceMgrConfig); err != nil {
		return fmt.Errorf("parse config %s: %w", f, err)
	}

	return nil
}

func CheckConfigVersion() error {
	currentVersion := SliceMgrConfig.getVersion()

	if currentVersion != SLICEMGR_EXPECTED_CONFIG_VERSION {
		return fmt.Errorf("config version is [%s], but expected is [%s]",
			currentVersion, SLICEMGR_EXPECTED_CONFIG_VERSION)
	}

	logger.CfgLog.Infof("config version [%s]", currentVersion)

	return nil
}
