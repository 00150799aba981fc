// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package context

import (
	"errors"
	"math"
	"slices"
	"sync"

	"github.com/omec-project/slicemanager/logger"
	"github.com/omec-project/util/idgenerator"
)

var ErrBundleNotFound = errors.New("bundle not found")

var sliceMgrContext = SliceMgrContext{}

type SliceMgrContext struct {
	NrSliceSupported bool
	Plmn             string

	// ID generator
	RequestIdGenerator *idgenerator.IDGenerator

	// Bundle table
	BundlePool sync.Map // map[string][]int, bundle name as key
	UidPool    sync.Map // map[int]string, uid as key

	SliceServer *SliceServer
}

func init() {
	sliceMgrContext.RequestIdGenerator = idgenerator.NewGenerator(1, math.MaxInt32)
}

func SliceMgrSelf() *SliceMgrContext {
	return &sliceMgrContext
}

// StoreBundle records the uids a bundle runs as. A uid belongs to exactly
// one bundle; a later bundle claiming it wins.
func (context *SliceMgrContext) StoreBundle(name string, uids []int) {
	if old, ok := context.BundlePool.Load(name); ok {
		for _, uid := range old.([]int) {
			context.UidPool.Delete(uid)
		}
	}
	context.BundlePool.Store(name, slices.Clone(uids))
	for _, uid := range uids {
		if owner, loaded := context.UidPool.Swap(uid, name); loaded && owner.(string) != name {
			logger.CtxLog.Warnf("uid %d moved from bundle %s to %s", uid, owner, name)
		}
	}
}

func (context *SliceMgrContext) DeleteBundle(name string) {
	if old, ok := context.BundlePool.LoadAndDelete(name); ok {
		for _, uid := range old.([]int) {
			context.UidPool.CompareAndDelete(uid, name)
		}
	}
}

func (context *SliceMgrContext) GetBundleNameForUid(uid int) (string, error) {
	name, ok := context.UidPool.Load(uid)
	if !ok {
		return "", ErrBundleNotFound
	}
	return name.(string), nil
}

// GetUidByBundleName returns the first uid of the bundle, INVALID_UID when
// the bundle is unknown.
func (context *SliceMgrContext) GetUidByBundleName(name string) int {
	uids := context.GetUidsByBundleName(name)
	if len(uids) == 0 {
		return INVALID_UID
	}
	return uids[0]
}

func (context *SliceMgrContext) GetUidsByBundleName(name string) []int {
	uids, ok := context.BundlePool.Load(name)
	if !ok {
		return nil
	}
	return slices.Clone(uids.([]int))
}

func (context *SliceMgrContext) AllocateRequestId() int64 {
	id, err := context.RequestIdGenerator.Allocate()
	if err != nil {
		logger.CtxLog.Errorf("allocate network request id failed: %+v", err)
		return 0
	}
	return id
}

func (context *SliceMgrContext) FreeRequestId(id int64) {
	if id > 0 {
		context.RequestIdGenerator.FreeID(id)
	}
}
