package websupport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/libdns/libdns"

	"gitlab.bluewillows.net/root/wsdns/pkg/provider"
)

// GetRecords lists the TXT records in zone. zone is fully qualified
// ("example.com.") and returned names are relative to it. When zone is below
// the Websupport zone ("sub.example.com."), only records inside it are
// returned.
func (p *Provider) GetRecords(ctx context.Context, zone string) ([]libdns.Record, error) {
	zoneID, err := p.client.FindZoneID(ctx, strings.TrimSuffix(zone, "."))
	if err != nil {
		return nil, provider.WrapError(p.name, "get_records", err)
	}

	records, err := p.client.ListRecords(ctx, zoneID)
	if err != nil {
		if provider.IsNotFound(err) {
			return nil, nil
		}
		return nil, provider.WrapError(p.name, "get_records", err)
	}

	var out []libdns.Record
	for _, r := range records {
		if r.Type != provider.RecordTypeTXT {
			continue
		}
		name, ok := rebase(r.Name, zoneID, zone)
		if !ok {
			continue
		}
		r.Name = name
		out = append(out, toLibdns(r))
	}
	return out, nil
}

// AppendRecords creates the given TXT records in zone and returns them with
// their provider IDs filled in. Records of any other type are rejected before
// anything is created.
func (p *Provider) AppendRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	for _, rec := range recs {
		if rec.Type != string(provider.RecordTypeTXT) {
			return nil, provider.WrapError(p.name, "append_records",
				fmt.Errorf("%w: record type %q is not supported", provider.ErrRecordCreate, rec.Type))
		}
	}

	domain := strings.TrimSuffix(zone, ".")
	var created []libdns.Record
	for _, rec := range recs {
		ttl := p.ttl
		if secs := int(rec.TTL / time.Second); secs >= 1 {
			ttl = secs
		}

		r, err := p.client.createTXTRecord(ctx, domain, libdns.AbsoluteName(rec.Name, zone), rec.Value, ttl)
		if err != nil {
			return created, provider.WrapError(p.name, "append_records", err)
		}
		if name, ok := rebase(r.Name, ZoneCandidate(domain), zone); ok {
			r.Name = name
		}
		created = append(created, toLibdns(r))
	}
	return created, nil
}

// DeleteRecords deletes the given TXT records from zone and returns the ones
// that existed. A record without an ID is matched by name and value.
func (p *Provider) DeleteRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	zoneID, err := p.client.FindZoneID(ctx, strings.TrimSuffix(zone, "."))
	if err != nil {
		return nil, provider.WrapError(p.name, "delete_records", err)
	}

	var deleted []libdns.Record
	for _, rec := range recs {
		if rec.Type != "" && rec.Type != string(provider.RecordTypeTXT) {
			p.logger.Debug("skipping non-TXT record", slog.String("type", rec.Type), slog.String("name", rec.Name))
			continue
		}

		id := rec.ID
		if id == "" {
			name := RelativeName(libdns.AbsoluteName(rec.Name, zone), zoneID)
			id, err = p.client.FindTXTRecordID(ctx, zoneID, name, rec.Value)
			if err != nil {
				return deleted, provider.WrapError(p.name, "delete_records", err)
			}
			if id == "" {
				continue
			}
		}

		if err := p.client.DeleteRecord(ctx, zoneID, id); err != nil {
			return deleted, provider.WrapError(p.name, "delete_records", err)
		}
		rec.ID = id
		deleted = append(deleted, rec)
	}
	return deleted, nil
}

// rebase converts name, relative to the Websupport zone zoneID, into a name
// relative to the caller's zone. ok is false when the record lies outside it.
func rebase(name, zoneID, zone string) (string, bool) {
	abs := zoneID
	if name != "" {
		abs = name + "." + zoneID
	}
	zone = strings.TrimSuffix(zone, ".")

	switch {
	case strings.EqualFold(abs, zone):
		return "", true
	case len(abs) > len(zone)+1 && strings.EqualFold(abs[len(abs)-len(zone)-1:], "."+zone):
		return abs[:len(abs)-len(zone)-1], true
	default:
		return "", false
	}
}

func toLibdns(r provider.Record) libdns.Record {
	name := r.Name
	if name == "" {
		name = "@"
	}
	return libdns.Record{
		ID:    r.ID,
		Type:  string(r.Type),
		Name:  name,
		Value: r.Content,
		TTL:   time.Duration(r.TTL) * time.Second,
	}
}

var (
	_ libdns.RecordGetter   = (*Provider)(nil)
	_ libdns.RecordAppender = (*Provider)(nil)
	_ libdns.RecordDeleter  = (*Provider)(nil)
)
