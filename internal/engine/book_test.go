package engine

import (
	"testing"

	"github.com/efreitasn/marketsim/internal/domain"
)

func makeEntry(price int64, seq uint64, orderID string) OrderBookEntry {
	return OrderBookEntry{
		Price:   price,
		Seq:     seq,
		OrderID: orderID,
		Order:   &domain.Order{OrderID: orderID, Price: price, RemainingQuantity: 1},
	}
}

func TestBidLess_PriceDescending(t *testing.T) {
	a := makeEntry(200, 2, "a")
	b := makeEntry(100, 1, "b")
	if !bidLess(a, b) {
		t.Error("expected higher price to be less on bid side")
	}
	if bidLess(b, a) {
		t.Error("expected lower price to not be less on bid side")
	}
}

func TestBidLess_SeqAscending(t *testing.T) {
	a := makeEntry(100, 1, "a")
	b := makeEntry(100, 2, "b")
	if !bidLess(a, b) {
		t.Error("expected earlier arrival to be less on bid side at same price")
	}
	if bidLess(b, a) {
		t.Error("expected later arrival to not be less on bid side at same price")
	}
}

func TestAskLess_PriceAscending(t *testing.T) {
	a := makeEntry(100, 2, "a")
	b := makeEntry(200, 1, "b")
	if !askLess(a, b) {
		t.Error("expected lower price to be less on ask side")
	}
	if askLess(b, a) {
		t.Error("expected higher price to not be less on ask side")
	}
}

func TestAskLess_SeqAscending(t *testing.T) {
	a := makeEntry(100, 1, "a")
	b := makeEntry(100, 2, "b")
	if !askLess(a, b) {
		t.Error("expected earlier arrival to be less on ask side at same price")
	}
}

func TestOrderBook_EmptyBook(t *testing.T) {
	ob := NewOrderBook("SIM")
	if _, ok := ob.BestBid(); ok {
		t.Error("expected no best bid on empty book")
	}
	if _, ok := ob.BestAsk(); ok {
		t.Error("expected no best ask on empty book")
	}
	d := ob.Depth(5)
	if len(d.Bids) != 0 || len(d.Asks) != 0 || d.Spread != nil {
		t.Errorf("expected empty depth, got %+v", d)
	}
	s := ob.Stats()
	if s.RestingOrders != 0 || s.Trades != 0 || s.LastTradePrice != nil {
		t.Errorf("expected zero stats, got %+v", s)
	}
}

func TestOrderBook_RestingAssignsSeq(t *testing.T) {
	ob := NewOrderBook("SIM")
	a := limitBuy("alice", 100, 5)
	b := limitBuy("bob", 100, 5)
	ob.Submit(a, 0)
	ob.Submit(b, 0)

	if a.Seq == 0 || b.Seq <= a.Seq {
		t.Errorf("expected increasing seq, got a=%d b=%d", a.Seq, b.Seq)
	}
	if !ob.Contains(a.OrderID) || !ob.Contains(b.OrderID) {
		t.Error("expected both orders to rest")
	}
}

func TestOrderBook_Depth(t *testing.T) {
	ob := NewOrderBook("SIM")
	ob.Submit(limitBuy("a", 99, 10), 0)
	ob.Submit(limitBuy("b", 99, 5), 0)
	ob.Submit(limitBuy("c", 98, 7), 0)
	ob.Submit(limitBuy("d", 97, 1), 0)
	ob.Submit(limitSell("e", 101, 3), 0)
	ob.Submit(limitSell("f", 103, 4), 0)

	d := ob.Depth(2)
	wantBids := []PriceLevel{{99, 15, 2}, {98, 7, 1}}
	wantAsks := []PriceLevel{{101, 3, 1}, {103, 4, 1}}
	if len(d.Bids) != len(wantBids) {
		t.Fatalf("got %d bid levels, want %d", len(d.Bids), len(wantBids))
	}
	for i := range wantBids {
		if d.Bids[i] != wantBids[i] {
			t.Errorf("bid level %d = %+v, want %+v", i, d.Bids[i], wantBids[i])
		}
	}
	for i := range wantAsks {
		if d.Asks[i] != wantAsks[i] {
			t.Errorf("ask level %d = %+v, want %+v", i, d.Asks[i], wantAsks[i])
		}
	}
	if d.Spread == nil || *d.Spread != 2 {
		t.Errorf("spread = %v, want 2", d.Spread)
	}
}

func TestOrderBook_DepthZeroLevels(t *testing.T) {
	ob := NewOrderBook("SIM")
	ob.Submit(limitBuy("a", 99, 10), 0)
	if d := ob.Depth(0); len(d.Bids) != 0 {
		t.Errorf("expected no levels for n=0, got %v", d.Bids)
	}
}

func TestOrderBook_Cancel(t *testing.T) {
	ob := NewOrderBook("SIM")
	a := limitSell("alice", 101, 5)
	b := limitSell("bob", 101, 5)
	c := limitSell("carol", 101, 5)
	ob.Submit(a, 0)
	ob.Submit(b, 0)
	ob.Submit(c, 0)

	if !ob.Cancel(b.OrderID) {
		t.Fatal("Cancel() = false, want true for resting order")
	}
	if b.Status != domain.OrderStatusCancelled || b.CancelledQuantity != 5 {
		t.Errorf("cancelled order: status=%s cancelled=%d", b.Status, b.CancelledQuantity)
	}
	if ob.Cancel(b.OrderID) {
		t.Error("second Cancel() should be a no-op")
	}
	if ob.Cancel("missing") {
		t.Error("Cancel() of unknown id should return false")
	}

	// Remaining priority is untouched: a then c.
	buy := limitBuy("dave", 101, 10)
	trades := ob.Submit(buy, 1)
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	if trades[0].SellOrderID != a.OrderID || trades[1].SellOrderID != c.OrderID {
		t.Errorf("fill order = %s, %s; want %s, %s", trades[0].SellOrderID, trades[1].SellOrderID, a.OrderID, c.OrderID)
	}
}

func TestOrderBook_WithdrawExpired(t *testing.T) {
	ob := NewOrderBook("SIM")
	o := limitBuy("alice", 100, 8)
	ob.Submit(o, 0)

	got, ok := ob.Withdraw(o.OrderID, domain.OrderStatusExpired)
	if !ok || got != o {
		t.Fatal("Withdraw() did not return the resting order")
	}
	if o.Status != domain.OrderStatusExpired {
		t.Errorf("status = %s, want expired", o.Status)
	}
	if ob.Contains(o.OrderID) {
		t.Error("withdrawn order still on book")
	}
}

func TestOrderBook_Stats(t *testing.T) {
	ob := NewOrderBook("SIM")
	ob.Submit(limitSell("s", 105, 10), 0)
	ob.Submit(limitBuy("b1", 100, 4), 0)
	ob.Submit(limitBuy("b2", 105, 3), 0)

	s := ob.Stats()
	if s.RestingOrders != 2 || s.BidOrders != 1 || s.AskOrders != 1 {
		t.Errorf("counts = %+v", s)
	}
	if s.Trades != 1 || s.LastTradePrice == nil || *s.LastTradePrice != 105 {
		t.Errorf("trades=%d last=%v, want 1 @ 105", s.Trades, s.LastTradePrice)
	}
	if *s.BestBid != 100 || *s.BestAsk != 105 || *s.Spread != 5 {
		t.Errorf("top of book = %d/%d spread %d", *s.BestBid, *s.BestAsk, *s.Spread)
	}
}

func TestOrderBook_RestingPriorityOrder(t *testing.T) {
	ob := NewOrderBook("SIM")
	b1 := limitBuy("a", 99, 1)
	b2 := limitBuy("b", 100, 1)
	s1 := limitSell("c", 102, 1)
	ob.Submit(b1, 0)
	ob.Submit(b2, 0)
	ob.Submit(s1, 0)

	got := ob.Resting()
	want := []*domain.Order{b2, b1, s1}
	if len(got) != len(want) {
		t.Fatalf("got %d resting, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("resting[%d] = %s, want %s", i, got[i].OrderID, want[i].OrderID)
		}
	}
}
