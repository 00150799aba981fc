// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package context

import (
	"strings"
)

// OsAppId is an application id of the form "osId#appId". The os id part is
// optional.
type OsAppId struct {
	OsId  string
	AppId string
}

// ParseOsAppId splits an os app id. More than one delimiter yields the zero
// value.
func ParseOsAppId(osAppId string) OsAppId {
	if osAppId == "" {
		return OsAppId{}
	}
	values := strings.Split(osAppId, OS_APP_ID_DELIM)
	switch len(values) {
	case 1:
		return OsAppId{AppId: values[0]}
	case 2:
		return OsAppId{OsId: values[0], AppId: values[1]}
	default:
		return OsAppId{}
	}
}

func (id OsAppId) String() string {
	if id.OsId == "" {
		return id.AppId
	}
	return id.OsId + OS_APP_ID_DELIM + id.AppId
}

// AppDescriptor is what a policy lookup matches a live request against.
type AppDescriptor struct {
	Uid        int
	OsAppId    string
	Dnn        string
	Fqdn       string
	Ipv4Addr   string
	Ipv6Addr   string
	ProtocolId string
	RemotePort string
	Cct        int
}

// NewAppDescriptor derives the lookup key of a request traffic descriptor.
// The package name resolved for its uid becomes the app id.
func NewAppDescriptor(td *TrafficDescriptor, packageName string) AppDescriptor {
	ad := AppDescriptor{
		Uid:        td.Uid(),
		Dnn:        td.Dnn(),
		Fqdn:       td.Fqdn(),
		ProtocolId: td.ProtocolId(),
		RemotePort: td.RemotePort(),
		Cct:        td.Cct(),
	}
	if packageName != "" {
		ad.OsAppId = REQUEST_NETWORK_SLICE_OS_ID + packageName
	}
	if ip := td.Ip(); ip != "" {
		if strings.Contains(ip, ":") {
			ad.Ipv6Addr = ip
		} else {
			ad.Ipv4Addr = ip
		}
	}
	return ad
}
