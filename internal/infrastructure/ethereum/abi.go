/*
 * Copyright (c) 2024 Bima Kharisma Wicaksana
 * GitHub: https://github.com/bimakw
 *
 * Licensed under MIT License with Attribution Requirement.
 * See LICENSE file for details.
 */

package ethereum

import (
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const wordSize = 32

// DecodeStringResult decodes the hex payload returned by name() or symbol().
// Three encodings are seen on-chain:
// 1. bytes32: exactly 32 bytes, right-padded with zeros (e.g., MKR)
// 2. ABI-encoded string: offset (32 bytes) + length (32 bytes) + data
// 3. length (32 bytes) + data, with the offset word omitted (under 96 bytes)
//
// It returns nil when the value is absent: empty payload, bad hex, bounds
// violations, invalid UTF-8 or a blank string.
func DecodeStringResult(dataHex string) *string {
	if dataHex == "" || dataHex == "0x" {
		return nil
	}

	data, err := decodeHex(dataHex)
	if err != nil {
		return nil
	}

	if len(data) == wordSize {
		return decodeBytes32(data)
	}

	if len(data) >= 3*wordSize {
		return decodeDynamicString(data)
	}

	if len(data) > wordSize {
		return decodeLengthPrefixed(data)
	}

	return nil
}

// decodeHex accepts 0x-prefixed or bare hex, left-padding odd-length input
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hexutil.Decode("0x" + s)
}

func decodeBytes32(data []byte) *string {
	return toValidString(common.TrimRightZeroes(data))
}

// decodeDynamicString decodes offset | ... | length | data. Any bounds
// violation makes the value absent.
func decodeDynamicString(data []byte) *string {
	offset, ok := readWord(data, 0)
	if !ok || offset > uint64(len(data))-wordSize {
		return nil
	}

	strLen, ok := readWord(data, offset)
	if !ok {
		return nil
	}

	start := offset + wordSize
	if strLen > uint64(len(data))-start {
		return nil
	}

	return toValidString(data[start : start+strLen])
}

// decodeLengthPrefixed decodes length | data
func decodeLengthPrefixed(data []byte) *string {
	strLen, ok := readWord(data, 0)
	if !ok || strLen > uint64(len(data)-wordSize) {
		return nil
	}
	return toValidString(data[wordSize : wordSize+strLen])
}

// readWord reads the big-endian 32-byte word at pos
func readWord(data []byte, pos uint64) (uint64, bool) {
	if pos > uint64(len(data)) || uint64(len(data))-pos < wordSize {
		return 0, false
	}
	v := new(big.Int).SetBytes(data[pos : pos+wordSize])
	if !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}

func toValidString(raw []byte) *string {
	if !utf8.Valid(raw) {
		return nil
	}
	s := string(raw)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
