// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package context

import "fmt"

// RouteSelectionDescriptor is the slice a URSP rule resolves to. The zero
// value is never used: a free slot holds a nil descriptor.
type RouteSelectionDescriptor struct {
	SscMode        uint8
	Dnn            string
	SNssai         string
	PduSessionType int
	MatchAll       bool
}

// MakeRouteSelectionDescriptor reads the RSD half of a URSP policy result.
func MakeRouteSelectionDescriptor(data map[string]string) *RouteSelectionDescriptor {
	return &RouteSelectionDescriptor{
		SscMode:        mapUint8(data, RSD_SSCMODE),
		Dnn:            data[RSD_DNN],
		SNssai:         data[RSD_SNSSAI],
		PduSessionType: mapInt(data, RSD_PDU_SESSION_TYPE, INVALID_PDU_SESSION_TYPE),
		MatchAll:       mapUint8(data, RSD_ROUTE_BITMAP)&ROUTE_BITMAP_MATCH_ALL != 0,
	}
}

func (rsd *RouteSelectionDescriptor) Equal(other *RouteSelectionDescriptor) bool {
	if rsd == nil || other == nil {
		return rsd == other
	}
	return *rsd == *other
}

func (rsd *RouteSelectionDescriptor) IsMatchAll() bool {
	return rsd != nil && rsd.MatchAll
}

func (rsd *RouteSelectionDescriptor) String() string {
	if rsd == nil {
		return "RouteSelectionDescriptor{}"
	}
	return fmt.Sprintf("RouteSelectionDescriptor{sscMode: %d, dnn: %s, sNssai: %s, pduSessionType: %d, matchAll: %t}",
		rsd.SscMode, rsd.Dnn, rsd.SNssai, rsd.PduSessionType, rsd.MatchAll)
}
