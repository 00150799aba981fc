// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package context

import (
	"net/netip"
	"slices"
	"strings"
)

const (
	fqdnIpv4Mask   = 0xff
	fqdnIpv6Prefix = 128
)

// FqdnIps accumulates the addresses a hostname resolved to. Both sets are
// kept sorted and free of duplicates. A nil *FqdnIps behaves as empty.
type FqdnIps struct {
	ipv4 []netip.Addr
	ipv6 []netip.Addr
}

// NewFqdnIps sorts addresses into the IPv4 and IPv6 sets.
func NewFqdnIps(addrs ...netip.Addr) *FqdnIps {
	f := &FqdnIps{}
	for _, addr := range addrs {
		f.Add(addr)
	}
	return f
}

func insertSorted(set []netip.Addr, addr netip.Addr) []netip.Addr {
	i, found := slices.BinarySearchFunc(set, addr, netip.Addr.Compare)
	if found {
		return set
	}
	return slices.Insert(set, i, addr)
}

func containsAddr(set []netip.Addr, addr netip.Addr) bool {
	_, found := slices.BinarySearchFunc(set, addr, netip.Addr.Compare)
	return found
}

func (f *FqdnIps) Add(addr netip.Addr) {
	if !addr.IsValid() {
		return
	}
	addr = addr.Unmap()
	if addr.Is4() {
		f.ipv4 = insertSorted(f.ipv4, addr)
	} else {
		f.ipv6 = insertSorted(f.ipv6, addr.WithZone(""))
	}
}

// Merge adds every address of other. The receiver only grows.
func (f *FqdnIps) Merge(other *FqdnIps) {
	if other == nil {
		return
	}
	for _, addr := range other.ipv4 {
		f.ipv4 = insertSorted(f.ipv4, addr)
	}
	for _, addr := range other.ipv6 {
		f.ipv6 = insertSorted(f.ipv6, addr)
	}
}

// NewIps returns the addresses of other that the receiver does not hold.
func (f *FqdnIps) NewIps(other *FqdnIps) *FqdnIps {
	diff := &FqdnIps{}
	if other == nil {
		return diff
	}
	for _, addr := range other.ipv4 {
		if f == nil || !containsAddr(f.ipv4, addr) {
			diff.ipv4 = append(diff.ipv4, addr)
		}
	}
	for _, addr := range other.ipv6 {
		if f == nil || !containsAddr(f.ipv6, addr) {
			diff.ipv6 = append(diff.ipv6, addr)
		}
	}
	return diff
}

func (f *FqdnIps) IsEmpty() bool {
	return f == nil || (len(f.ipv4) == 0 && len(f.ipv6) == 0)
}

func (f *FqdnIps) Ipv4Num() int {
	if f == nil {
		return 0
	}
	return len(f.ipv4)
}

func (f *FqdnIps) Ipv6Num() int {
	if f == nil {
		return 0
	}
	return len(f.ipv6)
}

func (f *FqdnIps) Ipv4Addrs() []netip.Addr {
	if f == nil {
		return nil
	}
	return slices.Clone(f.ipv4)
}

func (f *FqdnIps) Ipv6Addrs() []netip.Addr {
	if f == nil {
		return nil
	}
	return slices.Clone(f.ipv6)
}

// Ipv4AddrAndMask packs every IPv4 address followed by a host mask.
func (f *FqdnIps) Ipv4AddrAndMask() []byte {
	if f.Ipv4Num() == 0 {
		return nil
	}
	buf := make([]byte, 0, len(f.ipv4)*8)
	for _, addr := range f.ipv4 {
		b := addr.As4()
		buf = append(buf, b[:]...)
		buf = append(buf, fqdnIpv4Mask, fqdnIpv4Mask, fqdnIpv4Mask, fqdnIpv4Mask)
	}
	return buf
}

// Ipv6AddrAndPrefix packs every IPv6 address followed by a /128 prefix
// length.
func (f *FqdnIps) Ipv6AddrAndPrefix() []byte {
	if f.Ipv6Num() == 0 {
		return nil
	}
	buf := make([]byte, 0, len(f.ipv6)*17)
	for _, addr := range f.ipv6 {
		b := addr.As16()
		buf = append(buf, b[:]...)
		buf = append(buf, fqdnIpv6Prefix)
	}
	return buf
}

func (f *FqdnIps) Equal(other *FqdnIps) bool {
	if f.IsEmpty() || other.IsEmpty() {
		return f.IsEmpty() && other.IsEmpty()
	}
	return slices.Equal(f.ipv4, other.ipv4) && slices.Equal(f.ipv6, other.ipv6)
}

func (f *FqdnIps) Clone() *FqdnIps {
	if f == nil {
		return nil
	}
	return &FqdnIps{ipv4: slices.Clone(f.ipv4), ipv6: slices.Clone(f.ipv6)}
}

func (f *FqdnIps) String() string {
	if f.IsEmpty() {
		return "[]"
	}
	items := make([]string, 0, len(f.ipv4)+len(f.ipv6))
	for _, addr := range f.ipv4 {
		items = append(items, addr.String())
	}
	for _, addr := range f.ipv6 {
		items = append(items, addr.String())
	}
	return "[" + strings.Join(items, " ") + "]"
}
