package domainlink

import (
	"fmt"
)

// LighthouseIP is the address the apex A record points at.
const LighthouseIP = "44.226.115.90"

type RecordKind string

const (
	KindA   RecordKind = "a"
	KindTXT RecordKind = "txt"
)

// Record describes one DNS record the user has to create by hand.
type Record struct {
	Kind  RecordKind `json:"kind"`
	Type  string     `json:"type"`
	Name  string     `json:"name"`
	Value string     `json:"value"`
}

func ARecord(domain string) Record {
	return Record{
		Kind:  KindA,
		Type:  "A",
		Name:  fmt.Sprintf("@ (or %s)", domain),
		Value: LighthouseIP,
	}
}

func TXTRecord(domain, contentID string) Record {
	return Record{
		Kind:  KindTXT,
		Type:  "TXT",
		Name:  "_dnslink." + domain,
		Value: "dnslink=/ipfs/" + contentID,
	}
}

// Records returns the A record followed by the DNSLink TXT record.
func Records(domain, contentID string) []Record {
	return []Record{ARecord(domain), TXTRecord(domain, contentID)}
}

// CopyText is what the copy button puts on the clipboard for a record: the
// bare address for A, a zone-file style line for TXT.
func (r Record) CopyText() string {
	if r.Kind == KindTXT {
		return fmt.Sprintf("%s TXT %q", r.Name, r.Value)
	}
	return r.Value
}
