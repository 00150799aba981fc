// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"github.com/omec-project/slicemanager/context"
	"github.com/omec-project/slicemanager/factory"
	"github.com/omec-project/slicemanager/logger"
)

func InitSliceMgrContext() bool {
	sliceMgrCfg := factory.SliceMgrConfig.Configuration
	if sliceMgrCfg == nil {
		logger.CtxLog.Errorln("no slice manager configuration found")
		return false
	}

	s := context.SliceMgrSelf()
	s.NrSliceSupported = sliceMgrCfg.NrSliceSupported
	if !checkEmpty(sliceMgrCfg.Plmn, "PLMN is empty") {
		return false
	}
	s.Plmn = sliceMgrCfg.Plmn

	// Bundle table
	for _, bundle := range sliceMgrCfg.Bundles {
		uids := make([]int, 0, len(bundle.Uids))
		for _, uid := range bundle.Uids {
			if uid < 0 {
				logger.CtxLog.Warnf("bundle %s: skip invalid uid %d", bundle.Name, uid)
				continue
			}
			uids = append(uids, uid)
		}
		if len(uids) == 0 {
			logger.CtxLog.Warnf("bundle %s has no valid uid", bundle.Name)
			continue
		}
		s.StoreBundle(bundle.Name, uids)
	}

	if !sliceMgrCfg.NrSliceSupported {
		logger.CtxLog.Warnln("NR slicing is not supported, slice requests are disabled")
	}
	logger.CtxLog.Infof("slice manager context initialized (plmn %s, %d bundles)", s.Plmn, len(sliceMgrCfg.Bundles))
	return true
}

func checkEmpty(value, errMsg string) bool {
	if value == "" {
		logger.CtxLog.Errorln(errMsg)
		return false
	}
	return true
}
