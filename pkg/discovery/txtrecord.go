package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeGatewayTXT creates TXT records for a gateway.
func EncodeGatewayTXT(info *GatewayInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyVersion] = strconv.Itoa(ProtocolVersion)
	txt[TXTKeySender] = strconv.FormatUint(uint64(info.SenderID), 10)
	txt[TXTKeyKeyVersion] = strconv.FormatUint(uint64(info.KeyVersion), 10)
	txt[TXTKeyTransport] = info.Transport
	if txt[TXTKeyTransport] == "" {
		txt[TXTKeyTransport] = "udp"
	}

	if info.Profile != "" {
		txt[TXTKeyProfile] = info.Profile
	}
	if info.RecordsPerFrame > 0 {
		txt[TXTKeyRecordsPerFrame] = strconv.Itoa(info.RecordsPerFrame)
	}

	return txt
}

// DecodeGatewayTXT parses gateway TXT records. Instance and Port are not
// carried in TXT and are left zero.
func DecodeGatewayTXT(txt TXTRecordMap) (*GatewayInfo, error) {
	info := &GatewayInfo{}

	vStr, ok := txt[TXTKeyVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	v, err := strconv.Atoi(vStr)
	if err != nil {
		return nil, fmt.Errorf("%w: version %q", ErrInvalidTXTRecord, vStr)
	}
	if v != ProtocolVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	sStr, ok := txt[TXTKeySender]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeySender)
	}
	s, err := strconv.ParseUint(sStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: sender %q", ErrInvalidTXTRecord, sStr)
	}
	info.SenderID = uint16(s)

	kvStr, ok := txt[TXTKeyKeyVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyKeyVersion)
	}
	kv, err := strconv.ParseUint(kvStr, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: key version %q", ErrInvalidTXTRecord, kvStr)
	}
	info.KeyVersion = uint8(kv)

	info.Transport, ok = txt[TXTKeyTransport]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyTransport)
	}

	// Optional fields
	info.Profile = txt[TXTKeyProfile]
	if rpf, ok := txt[TXTKeyRecordsPerFrame]; ok {
		n, err := strconv.Atoi(rpf)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: records per frame %q", ErrInvalidTXTRecord, rpf)
		}
		info.RecordsPerFrame = n
	}

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a sorted slice of
// "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if found {
			txt[k] = v
		} else if k != "" {
			// Key without value (boolean flag)
			txt[k] = ""
		}
	}
	return txt
}

// InstanceName returns the instance name advertised for info.
func InstanceName(info *GatewayInfo) string {
	if info.Instance != "" {
		return info.Instance
	}
	return fmt.Sprintf("ARX-%d", info.SenderID)
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
