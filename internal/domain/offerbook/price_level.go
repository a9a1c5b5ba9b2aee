package offerbook

import "kicks-exchange/internal/domain/offer"

type entry struct {
	offer *offer.Offer
	level *priceLevel
	prev  *entry
	next  *entry
}

// priceLevel is the queue of offers resting at one price, earliest first.
type priceLevel struct {
	price int64
	head  *entry
	tail  *entry
	count int
}

// insert keeps time priority. Offers nearly always arrive in time order, so
// the scan starts from the tail and usually stops immediately.
func (p *priceLevel) insert(e *entry) {
	e.level = p
	p.count++

	at := p.tail
	for at != nil && e.offer.Precedes(at.offer) {
		at = at.prev
	}

	if at == nil {
		e.prev = nil
		e.next = p.head
		if p.head != nil {
			p.head.prev = e
		}
		p.head = e
		if p.tail == nil {
			p.tail = e
		}
		return
	}

	e.prev = at
	e.next = at.next
	if at.next != nil {
		at.next.prev = e
	} else {
		p.tail = e
	}
	at.next = e
}

func (p *priceLevel) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		p.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		p.tail = e.prev
	}
	e.prev = nil
	e.next = nil
	e.level = nil
	p.count--
}

func (p *priceLevel) empty() bool {
	return p.head == nil
}
