// Package reader translates a delimited input stream into shard requests.
// It is a thin adapter: no domain logic lives here, only parsing and
// dispatch, matching the source's csv.rs process function. No third-party
// CSV library appears anywhere in the retrieved corpus, so this is built
// on encoding/csv directly (see DESIGN.md).
package reader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/txstream/accounts/accountactor"
	"github.com/txstream/accounts/internal/xlog"
	"github.com/txstream/accounts/ledger"
	"github.com/txstream/accounts/money"
	"github.com/txstream/accounts/shard"
)

// Submitter is the subset of Engine a Reader dispatches requests through.
type Submitter interface {
	Submit(ctx context.Context, req shard.Request) (shard.Response, error)
}

// Reader parses records of the form "type, client, tx, amount" and
// dispatches one shard request per recognised row.
type Reader struct {
	log xlog.Logger
}

// New returns a Reader logging unknown record types and dispatch failures
// through log.
func New(log xlog.Logger) *Reader {
	return &Reader{log: log}
}

// record mirrors one input row; amount is optional because dispute,
// resolve, and chargeback rows carry none.
type record struct {
	kind   string
	client uint64
	tx     uint64
	amount string
	hasAmt bool
}

// Run reads every record from src, dispatching each to sub concurrently,
// and returns once every dispatch has completed (or failed). A malformed
// row or unrecognised type is logged and skipped; it never aborts the run.
func (r *Reader) Run(ctx context.Context, src io.Reader, sub Submitter) error {
	cr := csv.NewReader(src)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("reader: reading header: %w", err)
	}
	cols := columnIndex(header)

	var wg sync.WaitGroup
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			r.log.Warn("skipping malformed row", "err", err)
			continue
		}
		rec, ok := r.parse(row, cols)
		if !ok {
			continue
		}

		wg.Add(1)
		go func(rec record) {
			defer wg.Done()
			r.dispatch(ctx, sub, rec)
		}(rec)
	}
	wg.Wait()
	return nil
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

func (r *Reader) parse(row []string, cols map[string]int) (record, bool) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	kind := strings.ToLower(get("type"))
	client, err := parseUint(get("client"))
	if err != nil {
		r.log.Warn("skipping row with bad client id", "err", err)
		return record{}, false
	}
	tx, err := parseUint(get("tx"))
	if err != nil {
		r.log.Warn("skipping row with bad tx id", "err", err)
		return record{}, false
	}

	amountStr := get("amount")
	return record{kind: kind, client: client, tx: tx, amount: amountStr, hasAmt: amountStr != ""}, true
}

func (r *Reader) dispatch(ctx context.Context, sub Submitter, rec record) {
	req, ok := r.translate(rec)
	if !ok {
		return
	}
	resp, err := sub.Submit(ctx, req)
	if err != nil {
		r.log.Warn("dispatch failed", "client", rec.client, "tx", rec.tx, "err", err)
		return
	}
	if resp.Err != nil {
		r.log.Debug("rejected by account", "client", rec.client, "tx", rec.tx, "err", resp.Err)
	}
}

func (r *Reader) translate(rec record) (shard.Request, bool) {
	account := ledger.AccountID(rec.client)
	tx := ledger.TxID(rec.tx)

	var op accountactor.Op
	switch rec.kind {
	case "deposit":
		op = accountactor.Deposit
	case "withdrawal":
		op = accountactor.Withdraw
	case "dispute":
		op = accountactor.Dispute
	case "resolve":
		op = accountactor.Resolve
	case "chargeback":
		op = accountactor.Chargeback
	default:
		r.log.Warn("unknown command", "type", rec.kind)
		return shard.Request{}, false
	}

	var amount money.Money
	if op == accountactor.Deposit || op == accountactor.Withdraw {
		d, err := decimal.NewFromString(rec.amount)
		if err != nil {
			r.log.Warn("skipping row with bad amount", "client", rec.client, "tx", rec.tx, "err", err)
			return shard.Request{}, false
		}
		amount = money.New(d, money.Bitcoin)
	}

	return shard.Request{
		AccountID: account,
		Inner:     accountactor.Request{Op: op, TxID: tx, Amount: amount},
	}, true
}

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 32)
}
