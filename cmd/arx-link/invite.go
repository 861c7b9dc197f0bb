package main

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/arxos-protocol/arxos-go/pkg/auth"
	"github.com/arxos-protocol/arxos-go/pkg/invite"
)

// createInvite builds an invite code. A zero seed is replaced by a random
// one; the seed actually used is returned and must reach the verifier.
func createInvite(mac auth.MAC, building uint16, roleName string, hours uint8, seed uint32) (string, uint32, error) {
	role, err := invite.ParseRole(roleName)
	if err != nil {
		return "", 0, err
	}
	if seed == 0 {
		if seed, err = randomSeed(); err != nil {
			return "", 0, err
		}
	}
	return invite.Code(invite.Create(building, role, hours, mac, seed)), seed, nil
}

// verifyInvite parses and verifies an invite code and describes the grant.
func verifyInvite(mac auth.MAC, code string, seed uint32) (string, error) {
	inv, err := invite.ParseCode(code)
	if err != nil {
		return "", err
	}
	role, hours, err := invite.Verify(inv, mac, seed)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("building 0x%04x: %s access for %d h", inv.BuildingID, role, hours), nil
}

func randomSeed() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		return 0, fmt.Errorf("random seed: %w", err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func parseUint(s string, bits int) (uint64, error) {
	return strconv.ParseUint(s, 0, bits)
}
