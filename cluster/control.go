package cluster

import (
	"context"
	"fmt"
	"net"

	"github.com/scylladb/go-cql-driver/cqlerr"
	"github.com/scylladb/go-cql-driver/cqltype"
	"github.com/scylladb/go-cql-driver/frame"
	"github.com/scylladb/go-cql-driver/transport"
)

// Control runs the peer discovery queries (system.local, system.peers)
// against a single connection when Refresh is called, feeding a Registry,
// and applies the events passed to HandleEvent. It runs no periodic loop and
// no schema queries. Grounded on the vendored
// driver's transport/cluster.go control-connection loop, simplified to a
// pull-based refresh plus REGISTER/EVENT push instead of its full gossip
// state machine (documented in DESIGN.md).
type Control struct {
	conn *transport.Conn
	reg  *Registry
}

func NewControl(conn *transport.Conn, reg *Registry) *Control {
	return &Control{conn: conn, reg: reg}
}

// rawQuery issues a simple, unpaged QUERY at CONSISTENCY ONE, the
// consistency the control connection always uses for system-table reads.
func (c *Control) rawQuery(ctx context.Context, cql string) (frame.ResultMetadata, [][]frame.Value, error) {
	opts := frame.QueryOptions{Consistency: frame.ConsistencyOne}
	opts.SetFlags()

	b := &frame.Buffer{}
	b.WriteLongString(cql)
	b.WriteQueryOptions(opts)

	hdr, body, err := c.conn.SendRequest(ctx, frame.OpQuery, b.Bytes())
	if err != nil {
		return frame.ResultMetadata{}, nil, err
	}
	rb := frame.NewBuffer(body)
	switch hdr.OpCode {
	case frame.OpResult:
		kind := rb.ReadInt()
		if kind != frame.ResultRows {
			return frame.ResultMetadata{}, nil, nil
		}
		meta := rb.ReadResultMetadata()
		rowCount := int(rb.ReadInt())
		rows := make([][]frame.Value, rowCount)
		for i := range rows {
			row := make([]frame.Value, len(meta.Columns))
			for j := range row {
				row[j] = rb.ReadValue()
			}
			rows[i] = row
		}
		if rb.Error() != nil {
			return frame.ResultMetadata{}, nil, rb.Error()
		}
		return meta, rows, nil
	case frame.OpError:
		return frame.ResultMetadata{}, nil, cqlerr.ParseResponseError(rb)
	default:
		return frame.ResultMetadata{}, nil, cqlerr.DriverInternal{Msg: fmt.Sprintf("control: unexpected opcode %#x", hdr.OpCode)}
	}
}

func column(meta frame.ResultMetadata, row []frame.Value, name string) (interface{}, bool, error) {
	for i, col := range meta.Columns {
		if col.Name != name {
			continue
		}
		v := row[i]
		if v.N < 0 {
			return nil, true, nil
		}
		cqlv := cqltype.Value{Type: cqltype.FromOption(col.Type), Bytes: v.Bytes}
		goVal, err := cqltype.Unmarshal(cqlv)
		return goVal, false, err
	}
	return nil, true, nil
}

// RefreshLocal queries system.local for this connection's own host record.
func (c *Control) RefreshLocal(ctx context.Context) (*Host, error) {
	meta, rows, err := c.rawQuery(ctx, "SELECT host_id, data_center, rack, tokens FROM system.local")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, cqlerr.DriverInternal{Msg: "control: system.local returned no rows"}
	}
	return hostFromRow(meta, rows[0], c.conn.RemoteAddr())
}

// RefreshPeers queries system.peers for every other node's host record.
func (c *Control) RefreshPeers(ctx context.Context) ([]*Host, error) {
	meta, rows, err := c.rawQuery(ctx, "SELECT peer, host_id, data_center, rack, tokens FROM system.peers")
	if err != nil {
		return nil, err
	}
	hosts := make([]*Host, 0, len(rows))
	for _, row := range rows {
		peer, _, err := column(meta, row, "peer")
		if err != nil {
			return nil, err
		}
		ip, _ := peer.(net.IP)
		h, err := hostFromRow(meta, row, ip)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	return hosts, nil
}

func hostFromRow(meta frame.ResultMetadata, row []frame.Value, addr net.IP) (*Host, error) {
	idVal, _, err := column(meta, row, "host_id")
	if err != nil {
		return nil, err
	}
	id, _ := idVal.(cqltype.UUID)

	dcVal, _, err := column(meta, row, "data_center")
	if err != nil {
		return nil, err
	}
	dc, _ := dcVal.(string)

	rackVal, _, err := column(meta, row, "rack")
	if err != nil {
		return nil, err
	}
	rack, _ := rackVal.(string)

	h := NewHost(id, addr, 9042, dc, rack)

	tokensVal, isNull, err := column(meta, row, "tokens")
	if err != nil {
		return nil, err
	}
	if !isNull {
		if raw, ok := tokensVal.([]interface{}); ok {
			h.Tokens = make([]Token, 0, len(raw))
			for _, t := range raw {
				s, _ := t.(string)
				var tok int64
				if _, err := fmt.Sscanf(s, "%d", &tok); err == nil {
					h.Tokens = append(h.Tokens, tok)
				}
			}
		}
	}
	return h, nil
}

// Refresh performs a full topology refresh: queries system.local and
// system.peers, updates the Registry's host set and rebuilds its token ring.
func (c *Control) Refresh(ctx context.Context) error {
	local, err := c.RefreshLocal(ctx)
	if err != nil {
		return err
	}
	peers, err := c.RefreshPeers(ctx)
	if err != nil {
		return err
	}

	all := append([]*Host{local}, peers...)
	for _, h := range all {
		if _, ok := c.reg.Host(h.Addr); !ok {
			c.reg.AddHost(h)
		}
	}

	var ring Ring
	for _, h := range all {
		for _, t := range h.Tokens {
			ring = append(ring, RingEntry{Token: t, Host: h})
		}
	}
	c.reg.SetRing(ring)
	return nil
}

// HandleEvent applies a push TOPOLOGY_CHANGE/STATUS_CHANGE event to the
// registry without a full refresh, matching the vendored driver's
// incremental event handling in transport/cluster.go.
func (c *Control) HandleEvent(eventType frame.EventType, changeType string, addr net.IP) {
	switch eventType {
	case frame.EventTopologyChange:
		switch changeType {
		case "NEW_NODE":
			// A bare add with no metadata; a subsequent Refresh fills in
			// datacenter/rack/tokens once the node finishes bootstrapping.
			if _, ok := c.reg.Host(addr); !ok {
				c.reg.AddHost(NewHost(cqltype.UUID{}, addr, 9042, "", ""))
			}
		case "REMOVED_NODE":
			c.reg.RemoveHost(addr)
		}
	case frame.EventStatusChange:
		switch changeType {
		case "UP":
			c.reg.MarkUp(addr)
		case "DOWN":
			c.reg.MarkDown(addr)
		}
	}
}
