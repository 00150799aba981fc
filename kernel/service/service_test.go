// SPDX-FileCopyrightText: 2025 Intel Corporation
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/omec-project/slicemanager/kernel/message"
	"github.com/vishvananda/netlink/nl"
	"golang.org/x/sys/unix"
)

type fakeSocket struct {
	mu     sync.Mutex
	sent   []*nl.NetlinkRequest
	recvCh chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		recvCh: make(chan []byte, 8),
		closed: make(chan struct{}),
	}
}

func (s *fakeSocket) Send(req *nl.NetlinkRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, req)
	return nil
}

func (s *fakeSocket) Receive() ([]syscall.NetlinkMessage, *unix.SockaddrNetlink, error) {
	select {
	case data := <-s.recvCh:
		return []syscall.NetlinkMessage{{Data: data}}, nil, nil
	case <-s.closed:
		return nil, nil, errors.New("socket closed")
	case <-time.After(20 * time.Millisecond):
		return nil, nil, unix.EAGAIN
	}
}

func (s *fakeSocket) SetReceiveTimeout(*unix.Timeval) error { return nil }

func (s *fakeSocket) Close() {
	s.once.Do(func() { close(s.closed) })
}

func (s *fakeSocket) requests() []*nl.NetlinkRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*nl.NetlinkRequest(nil), s.sent...)
}

func newTestProxy(sock *fakeSocket) *KernelProxy {
	p := NewKernelProxy(49)
	p.openSocket = func(int) (netlinkSocket, error) { return sock, nil }
	return p
}

func TestRunRegistersWithKernel(t *testing.T) {
	sock := newFakeSocket()
	p := newTestProxy(sock)
	wg := &sync.WaitGroup{}

	if err := p.Run(context.Background(), wg); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if p.State() != StateReceiving {
		t.Errorf("Expected %s, got %s", StateReceiving, p.State())
	}
	reqs := sock.requests()
	if len(reqs) != 1 || reqs[0].Type != message.NETWORKSLICE_REG_MSG {
		t.Fatalf("Expected one registration message, got %d", len(reqs))
	}
	if n := len(reqs[0].Serialize()); n != unix.SizeofNlMsghdr {
		t.Errorf("Expected an empty registration of %d bytes, got %d", unix.SizeofNlMsghdr, n)
	}

	p.Stop()
	wg.Wait()
	if p.State() != StateClosed {
		t.Errorf("Expected %s, got %s", StateClosed, p.State())
	}
}

func TestSendDataToKernel(t *testing.T) {
	sock := newFakeSocket()
	p := newTestProxy(sock)

	payload := message.BuildIpReportControl(true)
	if err := p.SendDataToKernel(payload); err != nil {
		t.Fatalf("SendDataToKernel failed: %v", err)
	}
	reqs := sock.requests()
	if len(reqs) != 1 {
		t.Fatalf("Expected 1 request, got %d", len(reqs))
	}
	if reqs[0].Type != message.NETWORKSLICE_DATA_MSG {
		t.Errorf("Expected type %d, got %d", message.NETWORKSLICE_DATA_MSG, reqs[0].Type)
	}
	raw := reqs[0].Serialize()
	if len(raw) != unix.SizeofNlMsghdr+len(payload) {
		t.Errorf("Expected %d bytes, got %d", unix.SizeofNlMsghdr+len(payload), len(raw))
	}

	if err := p.SendDataToKernel(nil); !errors.Is(err, ErrInvalidSendLength) {
		t.Errorf("Expected ErrInvalidSendLength, got %v", err)
	}
	if err := p.SendDataToKernel(make([]byte, message.NETLINK_BUFFER_MAX_SIZE+1)); !errors.Is(err, ErrInvalidSendLength) {
		t.Errorf("Expected ErrInvalidSendLength, got %v", err)
	}
	if err := p.SendDataToKernel(make([]byte, message.NETLINK_BUFFER_MAX_SIZE)); err != nil {
		t.Errorf("Expected maximum length to be accepted, got %v", err)
	}
}

func TestReceiverDispatch(t *testing.T) {
	sock := newFakeSocket()
	p := newTestProxy(sock)
	received := make(chan []byte, 4)
	p.RegisterHandler(ModuleSliceManager, func(data []byte) { received <- data },
		[]int16{message.KERNEL_RSP_SLICE_IP_PARA})

	wg := &sync.WaitGroup{}
	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Run(ctx, wg); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	record := make([]byte, message.Ipv4ReportLen)
	binary.LittleEndian.PutUint16(record[0:], uint16(message.KERNEL_RSP_SLICE_IP_PARA))
	binary.LittleEndian.PutUint16(record[2:], message.Ipv4ReportLen)

	other := make([]byte, 8)
	binary.LittleEndian.PutUint16(other[0:], 99)

	sock.recvCh <- []byte{1, 2}
	sock.recvCh <- other
	sock.recvCh <- record

	select {
	case data := <-received:
		if len(data) != message.Ipv4ReportLen {
			t.Errorf("Expected %d bytes, got %d", message.Ipv4ReportLen, len(data))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the ip report to be dispatched")
	}
	select {
	case data := <-received:
		t.Errorf("Unexpected extra record %v", data)
	default:
	}

	p.UnregisterHandler(ModuleSliceManager)
	sock.recvCh <- record
	time.Sleep(100 * time.Millisecond)
	if len(received) != 0 {
		t.Error("Expected no dispatch after unregister")
	}

	cancel()
	wg.Wait()
	if p.State() != StateClosed {
		t.Errorf("Expected %s, got %s", StateClosed, p.State())
	}
}

func TestSendReopensClosedSocket(t *testing.T) {
	first := newFakeSocket()
	p := newTestProxy(first)
	wg := &sync.WaitGroup{}
	if err := p.Run(context.Background(), wg); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	p.Stop()
	wg.Wait()

	second := newFakeSocket()
	p.openSocket = func(int) (netlinkSocket, error) { return second, nil }
	if err := p.SendDataToKernel([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("SendDataToKernel failed: %v", err)
	}
	if len(second.requests()) != 1 {
		t.Errorf("Expected the data on the reopened socket, got %d", len(second.requests()))
	}
}
