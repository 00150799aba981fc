// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package context

import "fmt"

const (
	INVALID_UID       = -1
	INVALID_NET_ID    = -1
	MAX_NETWORK_SLICE = 6

	SEPARATOR         = ","
	OS_APP_ID_DELIM   = "#"
	SCENEBOARD_BUNDLE = "com.ohos.sceneboard"
	// OS id prefix used when matching a foreground application against the
	// app id white list.
	REQUEST_NETWORK_SLICE_OS_ID = "01020304050607080102030405060708#"
)

// Route bitmap bits of a traffic descriptor
const (
	ROUTE_BITMAP_MATCH_ALL uint8 = 1 << 0
	MATCH_DNN              uint8 = 1 << 1
	MATCH_FQDN             uint8 = 1 << 2
	MATCH_AVAILABLE        uint8 = 1 << 3
	MATCH_CCT              uint8 = 1 << 4
)

// Connection capability types
const (
	CCT_INVALID = -1
	CCT_IMS     = 1
	CCT_MMS     = 2
	CCT_SUPL    = 4
)

// PDU session type absent from a route selection descriptor
const INVALID_PDU_SESSION_TYPE = -1

// RouteBindType tells which kernel bindings a traffic descriptor needs.
type RouteBindType int

const (
	RouteBindUid RouteBindType = iota
	RouteBindIp
	RouteBindUidIp
	RouteBindInvalid
)

func (t RouteBindType) String() string {
	switch t {
	case RouteBindUid:
		return "UID_TDS"
	case RouteBindIp:
		return "IP_TDS"
	case RouteBindUidIp:
		return "UID_IP_TDS"
	default:
		return "INVALID_TDS"
	}
}

// NetCap identifies one of the slice network capabilities. Each slot of the
// slice pool is statically tied to one value.
type NetCap int

const (
	NetCapSnssai1 NetCap = iota + 1
	NetCapSnssai2
	NetCapSnssai3
	NetCapSnssai4
	NetCapSnssai5
	NetCapSnssai6
)

var SliceNetCaps = []NetCap{
	NetCapSnssai1, NetCapSnssai2, NetCapSnssai3,
	NetCapSnssai4, NetCapSnssai5, NetCapSnssai6,
}

func (n NetCap) String() string {
	return fmt.Sprintf("NET_CAPABILITY_SNSSAI%d", int(n))
}

// Wifi connection states as reported by the wifi service
const (
	WIFI_STATE_CONNECTED    = 4
	WIFI_STATE_DISCONNECTED = 6
)

// Application states as reported by the application state observer
const (
	APP_STATE_FOREGROUND = 2
	APP_STATE_BACKGROUND = 4
	APP_STATE_TERMINATED = 5
)

// Network activation results
const (
	NETWORK_ACTIVATE_RESULT_SUCCESS     = 0
	NETWORK_ACTIVATE_RESULT_NORMAL_FAIL = 1
)
