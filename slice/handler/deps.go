// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"time"

	"github.com/omec-project/slicemanager/context"
)

// KernelSender delivers one encoded record to the slice kernel module.
type KernelSender interface {
	SendDataToKernel(payload []byte) error
}

// NetConnClient brings slice networks up and down. Availability is
// reported back asynchronously as NetworkAvailable, NetworkLost and
// NetworkUnavailable events.
type NetConnClient interface {
	RequestNetConnection(req *context.NetworkRequest, cb *context.NetworkCallback, timeout time.Duration) error
	UnregisterNetConnCallback(cb *context.NetworkCallback) error
}

// BundleResolver maps between uids and bundle names.
type BundleResolver interface {
	GetBundleNameForUid(uid int) (string, error)
	GetUidByBundleName(name string) int
	GetUidsByBundleName(name string) []int
}

// PolicySelector resolves traffic to URSP route selection descriptors.
type PolicySelector interface {
	SliceNetworkSelection(plmn string, ad context.AppDescriptor,
		isForbidden func(*context.RouteSelectionDescriptor) bool) (map[string]string, bool)
	IsIpThreeTuplesInWhiteList(plmn string, ad context.AppDescriptor) bool
	HasAvailableRule() bool
}

// Deps are the collaborators of the slice managers.
type Deps struct {
	Kernel  KernelSender
	NetConn NetConnClient
	Bundles BundleResolver
	Policy  PolicySelector
	// Post feeds events back into the slice worker. Timer expiry uses it.
	Post func(evt context.SliceEvt) bool
}
