package engine

// pushBid appends to the bounded bid history, discarding the oldest entry
// once the configured limit is reached.
func (a *Auction) pushBid(e BidEntry) {
	a.history = append(a.history, e)
	if limit := a.cfg.HistoryLimit; limit > 0 && len(a.history) > limit {
		a.history = a.history[len(a.history)-limit:]
	}
}

// Undo pops the most recent accepted bid and restores the current bid,
// leading team and last-bid team from whatever entry is now on top, or to
// the base price and no leader when the history empties. Single step only;
// there is no redo.
func (a *Auction) Undo() (Event, error) {
	if a.currentID == "" {
		return Event{}, ErrNoActivePlayer
	}
	if len(a.history) == 0 {
		return Event{}, ErrNothingToUndo
	}

	a.history = a.history[:len(a.history)-1]
	if len(a.history) > 0 {
		top := a.history[len(a.history)-1]
		a.currentBid = top.Amount
		a.leadingTeamID = top.TeamID
		a.lastBidTeamID = top.TeamID
	} else {
		a.currentBid = a.players[a.currentID].BasePrice
		a.leadingTeamID = ""
		a.lastBidTeamID = ""
	}

	return Event{Type: EvtBidUndone, PlayerID: a.currentID, TeamID: a.leadingTeamID, Amount: a.currentBid, Round: a.round}, nil
}
