// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"fmt"
	"strconv"
)

// DeletePara is the content of a KERNEL_DEL_UID_BIND_MSG record.
type DeletePara struct {
	DelType     DelBindType
	NetId       int32
	Precedences []int32
	Uids        []int32
}

// NewDeletePara builds unbind parameters from an unbind request map. A
// missing netId is encoded as -1.
func NewDeletePara(data map[string]string) (*DeletePara, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty unbind request: %w", ErrInvalidParameter)
	}
	s, ok := data[KeyDelType]
	if !ok {
		return nil, ErrInvalidDelType
	}
	delType, err := strconv.Atoi(s)
	if err != nil || delType < int(DelBindAll) || delType > int(DelBindPrecedence) {
		return nil, fmt.Errorf("type %q: %w", s, ErrInvalidDelType)
	}

	p := &DeletePara{DelType: DelBindType(delType), NetId: -1}
	if p.Uids, err = ParseIntList(data[KeyUids]); err != nil {
		return nil, fmt.Errorf("uids: %w", err)
	}
	if p.Precedences, err = ParseIntList(data[KeyUrspPrecedence]); err != nil {
		return nil, fmt.Errorf("urspPrecedence: %w", err)
	}
	if v, ok := data[KeyNetId]; ok && v != "" {
		netId, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("netId %q: %w", v, ErrInvalidParameter)
		}
		p.NetId = int32(netId)
	}
	return p, nil
}

// Len is the full record length including the header.
func (p *DeletePara) Len() int {
	return KernelMsgHeaderLen + LenInt + LenInt + LenInt + LenInt*len(p.Precedences) +
		LenInt + LenInt*len(p.Uids)
}

func (p *DeletePara) Marshal() ([]byte, error) {
	length := p.Len()
	if length > NETLINK_BUFFER_MAX_SIZE {
		return nil, fmt.Errorf("unbind record of %d bytes: %w", length, ErrInvalidMessageLength)
	}
	buf := make([]byte, 0, length)
	buf = PutShort(buf, KERNEL_DEL_UID_BIND_MSG, HeaderOrder)
	buf = PutShort(buf, int16(length), HeaderOrder)
	buf = PutInt(buf, int32(p.DelType), BodyOrder)
	buf = PutInt(buf, p.NetId, BodyOrder)
	buf = PutInt(buf, int32(len(p.Precedences)), BodyOrder)
	for _, precedence := range p.Precedences {
		buf = PutInt(buf, precedence, BodyOrder)
	}
	buf = PutInt(buf, int32(len(p.Uids)), BodyOrder)
	for _, uid := range p.Uids {
		buf = PutInt(buf, uid, BodyOrder)
	}
	return buf, nil
}

func UnmarshalDeletePara(b []byte) (*DeletePara, error) {
	offset := 0
	msgType, err := GetShort(b, &offset, HeaderOrder)
	if err != nil {
		return nil, err
	}
	if msgType != KERNEL_DEL_UID_BIND_MSG {
		return nil, fmt.Errorf("record type %d: %w", msgType, ErrInvalidParameter)
	}
	length, err := GetShort(b, &offset, HeaderOrder)
	if err != nil {
		return nil, err
	}
	if int(length) != len(b) {
		return nil, ErrInvalidMessageLength
	}

	p := &DeletePara{}
	delType, err := GetInt(b, &offset, BodyOrder)
	if err != nil {
		return nil, err
	}
	if delType < int32(DelBindAll) || delType > int32(DelBindPrecedence) {
		return nil, ErrInvalidDelType
	}
	p.DelType = DelBindType(delType)
	if p.NetId, err = GetInt(b, &offset, BodyOrder); err != nil {
		return nil, err
	}
	if p.Precedences, err = getIntArray(b, &offset); err != nil {
		return nil, err
	}
	if p.Uids, err = getIntArray(b, &offset); err != nil {
		return nil, err
	}
	if offset != len(b) {
		return nil, ErrInvalidMessageLength
	}
	return p, nil
}

func getIntArray(b []byte, offset *int) ([]int32, error) {
	n, err := GetInt(b, offset, BodyOrder)
	if err != nil {
		return nil, err
	}
	if n < 0 || int(n)*LenInt > len(b)-*offset {
		return nil, ErrInvalidMessageLength
	}
	var values []int32
	for range n {
		v, err := GetInt(b, offset, BodyOrder)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
