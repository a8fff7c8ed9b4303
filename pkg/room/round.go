package room

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/comms"
	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/game"
	"go.uber.org/zap"
)

// ToggleReady flips the participant's ready flag. Once every active
// participant (at least two of them) is ready, a round starts.
func (s *Service) ToggleReady(roomID, participantID string) {
	rid, ok := s.checkIDs(roomID, participantID)
	if !ok {
		return
	}
	s.dispatch.Enqueue(rid, func() {
		room, entry, rej := s.activeParticipant(rid, participantID)
		if rej != nil {
			s.reject(participantID, rej)
			return
		}

		entry.Ready = !entry.Ready
		room.touch()
		s.broadcastStatus(room)

		if len(room.Active) >= 2 && room.allActiveReady() {
			s.startRound(room)
		}
	})
}

// SubmitChoice records the participant's choice for the round in
// progress, resolving the round once every active participant has chosen.
func (s *Service) SubmitChoice(roomID, participantID string, choice game.Choice) {
	rid, ok := s.checkIDs(roomID, participantID)
	if !ok {
		return
	}
	s.dispatch.Enqueue(rid, func() {
		room, ok := s.registry.Get(rid)
		if !ok || !room.Round.InProgress {
			s.reject(participantID, &Rejection{
				Kind:   KindGameNotActive,
				Reason: "no round is in progress",
				RoomID: rid,
			})
			return
		}
		if !room.isActive(participantID) {
			s.reject(participantID, &Rejection{
				Kind:   KindNotActivePlayer,
				Reason: "you are not an active player",
				RoomID: rid,
			})
			return
		}
		if !choice.Valid() {
			s.reject(participantID, &Rejection{
				Kind:   KindValidation,
				Reason: fmt.Sprintf("%d is not a playable choice", int(choice)),
				RoomID: rid,
			})
			return
		}

		room.Round.Choices[participantID] = choice
		if entry := room.Players[participantID]; entry != nil {
			entry.Choice = &choice
		}
		room.touch()

		if len(room.Round.Choices) == len(room.Active) {
			s.finishRound(room)
		} else {
			s.notifier.ToRoom(rid, comms.ToMessage(WaitingForChoicesBroadcast{
				RoomID:       rid,
				MadeChoices:  len(room.Round.Choices),
				TotalPlayers: len(room.Active),
			}))
		}
	})
}

// RequestPlayAgain casts the participant's vote for a new round. A full
// vote starts the round immediately; otherwise a timeout window opens and
// non-voters are moved to the queue when it fires.
func (s *Service) RequestPlayAgain(roomID, participantID string) {
	rid, ok := s.checkIDs(roomID, participantID)
	if !ok {
		return
	}
	s.dispatch.Enqueue(rid, func() {
		room, _, rej := s.activeParticipant(rid, participantID)
		if rej != nil {
			s.reject(participantID, rej)
			return
		}
		if room.Round.InProgress {
			s.reject(participantID, &Rejection{
				Kind:   KindValidation,
				Reason: "a round is already in progress",
				RoomID: rid,
			})
			return
		}

		room.Votes[participantID] = true
		room.touch()

		votes := make([]string, 0, len(room.Votes))
		for id := range room.Votes {
			votes = append(votes, id)
		}
		sort.Strings(votes)
		s.notifier.ToRoom(rid, comms.ToMessage(PlayAgainVoteBroadcast{
			RoomID: rid,
			Votes:  votes,
			Needed: len(room.Active),
		}))

		if len(room.Votes) == len(room.Active) {
			if room.voteTimer != nil {
				room.voteTimer.Stop()
				room.voteTimer = nil
			}
			room.Votes = make(map[string]bool)
			s.startRound(room)
			s.broadcastStatus(room)
			return
		}

		if room.voteTimer == nil {
			room.voteTimer = time.AfterFunc(s.cfg.PlayAgainTimeout, func() {
				s.dispatch.Enqueue(rid, func() {
					s.playAgainTimedOut(rid)
				})
			})
		}
	})
}

// UpdateSettings merges a partial settings update. Only the participant
// occupying slot 1 may change settings.
func (s *Service) UpdateSettings(roomID, participantID string, patch SettingsPatch) {
	rid, ok := s.checkIDs(roomID, participantID)
	if !ok {
		return
	}
	s.dispatch.Enqueue(rid, func() {
		room, ok := s.registry.Get(rid)
		if !ok {
			s.reject(participantID, &Rejection{
				Kind:   KindRoomNotFound,
				Reason: "room does not exist",
				RoomID: rid,
			})
			return
		}
		if len(room.Slots) == 0 || room.Slots[0] != participantID {
			s.reject(participantID, &Rejection{
				Kind:   KindNotAuthorized,
				Reason: "only the first active player can change settings",
				RoomID: rid,
			})
			return
		}

		if patch.MaxPlayers != nil {
			// Round resolution is defined for exactly two slots.
			if *patch.MaxPlayers != 2 {
				s.reject(participantID, &Rejection{
					Kind:   KindValidation,
					Reason: "maxPlayers must be 2",
					RoomID: rid,
				})
				return
			}
			room.Settings.MaxPlayers = *patch.MaxPlayers
		}
		if patch.RotatePlayersAfterRound != nil {
			room.Settings.RotatePlayersAfterRound = *patch.RotatePlayersAfterRound
		}
		room.touch()

		s.notifier.ToRoom(rid, comms.ToMessage(SettingsUpdatedBroadcast{
			RoomID:   rid,
			Settings: room.Settings,
		}))
		s.broadcastStatus(room)
	})
}

// activeParticipant resolves the room and the caller's entry, rejecting
// unknown rooms and non-active callers.
func (s *Service) activeParticipant(roomID, participantID string) (*Room, *PlayerEntry, *Rejection) {
	room, ok := s.registry.Get(roomID)
	if !ok {
		return nil, nil, &Rejection{
			Kind:   KindRoomNotFound,
			Reason: "room does not exist",
			RoomID: roomID,
		}
	}
	entry := room.Players[participantID]
	if entry == nil || !room.isActive(participantID) {
		return nil, nil, &Rejection{
			Kind:   KindNotActivePlayer,
			Reason: "you are not an active player",
			RoomID: roomID,
		}
	}
	return room, entry, nil
}

// startRound runs on the room's chain. Status goes out before gameplay
// events so clients reconcile membership first.
func (s *Service) startRound(room *Room) {
	if room.voteTimer != nil {
		room.voteTimer.Stop()
		room.voteTimer = nil
	}
	room.Votes = make(map[string]bool)

	for _, id := range room.Active {
		entry := room.Players[id]
		entry.Ready = false
		entry.Choice = nil
	}

	room.Round.InProgress = true
	room.Round.Round++
	room.Round.Choices = make(map[string]game.Choice)
	room.touch()

	s.log.Info("round started",
		zap.String("roomID", room.ID),
		zap.Int("round", room.Round.Round))

	players := append([]string(nil), room.Active...)
	s.broadcastStatus(room)
	s.notifier.ToRoom(room.ID, comms.ToMessage(GameStartedBroadcast{
		RoomID:  room.ID,
		Round:   room.Round.Round,
		Players: players,
	}))
	s.notifier.ToRoom(room.ID, comms.ToMessage(RoundChoicesBroadcast{
		RoomID:  room.ID,
		Round:   room.Round.Round,
		Players: players,
	}))
}

// finishRound resolves the round using the slot 1 and slot 2 occupants in
// that fixed order; slot 1 is always "first" for reporting purposes.
func (s *Service) finishRound(room *Room) {
	first, second := room.Slots[0], room.Slots[1]
	firstChoice := room.Round.Choices[first]
	secondChoice := room.Round.Choices[second]

	outcome := game.Resolve(firstChoice, secondChoice)
	winner := "draw"
	switch outcome {
	case game.FirstWins:
		winner = first
	case game.SecondWins:
		winner = second
	}

	choices := make(map[string]game.Choice, len(room.Round.Choices))
	for id, c := range room.Round.Choices {
		choices[id] = c
	}
	result := RoundResult{
		Round:   room.Round.Round,
		Winner:  winner,
		Choices: choices,
	}
	room.Round.Results = append(room.Round.Results, result)
	room.Round.InProgress = false
	room.touch()

	s.log.Info("round finished",
		zap.String("roomID", room.ID),
		zap.Int("round", room.Round.Round),
		zap.String("winner", winner))

	s.notifier.ToRoom(room.ID, comms.ToMessage(RoundFinishedBroadcast{
		RoomID: room.ID,
		Round:  room.Round.Round,
		Result: result,
	}))

	s.persistResults(room.ID, room.Round.Round, first, second, outcome)

	if room.Settings.RotatePlayersAfterRound && len(room.Queue) > 0 {
		s.rotateAfterRound(room)
	}
	s.broadcastStatus(room)
}

// persistResults hands the outcome to the persistence collaborator off
// the room chain; storage failures never affect round resolution.
func (s *Service) persistResults(roomID string, round int, first, second string, outcome game.Outcome) {
	if s.results == nil {
		return
	}
	firstOutcome, secondOutcome := "draw", "draw"
	switch outcome {
	case game.FirstWins:
		firstOutcome, secondOutcome = "win", "lose"
	case game.SecondWins:
		firstOutcome, secondOutcome = "lose", "win"
	}
	now := time.Now()
	results := []Result{
		{RoomID: roomID, ParticipantID: first, Outcome: firstOutcome, Round: round, CreatedAt: now},
		{RoomID: roomID, ParticipantID: second, Outcome: secondOutcome, Round: round, CreatedAt: now},
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.results.SaveRoundResults(ctx, results); err != nil {
			s.log.Error("unable to save round results",
				zap.String("roomID", roomID),
				zap.Int("round", round),
				zap.Error(err))
		}
	}()
}

// rotateAfterRound swaps the first active player with the queue head when
// rotation is enabled. Both swapped players must re-ready.
func (s *Service) rotateAfterRound(room *Room) {
	if len(room.Queue) == 0 || len(room.Active) == 0 {
		return
	}

	rotated := room.Active[0]
	room.Active = room.Active[1:]
	if entry := room.Players[rotated]; entry != nil {
		if entry.Slot > 0 {
			room.Slots[entry.Slot-1] = ""
		}
		entry.Slot = 0
		entry.Ready = false
	}
	room.Queue = append(room.Queue, rotated)

	promoted := room.Queue[0]
	room.Queue = room.Queue[1:]
	if entry := room.Players[promoted]; entry != nil {
		entry.Slot = room.assignSlot(promoted)
		entry.Ready = false
		room.Active = append(room.Active, promoted)

		s.notifier.ToParticipant(promoted, comms.ToMessage(PromotedToActiveResponse{
			RoomID:       room.ID,
			PlayerNumber: entry.Slot,
		}))
	}
	s.notifier.ToParticipant(rotated, comms.ToMessage(MovedToQueueResponse{
		RoomID:        room.ID,
		QueuePosition: room.queuePosition(rotated),
	}))
}

// playAgainTimedOut evicts non-voters to the queue, promotes from the
// queue, and starts a round if at least two players remain active.
func (s *Service) playAgainTimedOut(roomID string) {
	room, ok := s.registry.Get(roomID)
	if !ok {
		return
	}
	room.voteTimer = nil
	if room.Round.InProgress {
		room.Votes = make(map[string]bool)
		return
	}

	var nonVoters []string
	for _, id := range room.Active {
		if !room.Votes[id] {
			nonVoters = append(nonVoters, id)
		}
	}

	for _, id := range nonVoters {
		room.Active = removeID(room.Active, id)
		if entry := room.Players[id]; entry != nil {
			if entry.Slot > 0 {
				room.Slots[entry.Slot-1] = ""
			}
			entry.Slot = 0
		}
		if !containsID(room.Queue, id) {
			room.Queue = append(room.Queue, id)
		}
		s.notifier.ToParticipant(id, comms.ToMessage(RemovedForNoPlayResponse{RoomID: roomID}))
	}
	room.Votes = make(map[string]bool)

	s.log.Info("play-again vote timed out",
		zap.String("roomID", roomID),
		zap.Strings("movedToQueue", nonVoters))

	s.notifySlotMoves(room, room.compactSlots())
	s.fillActiveSlots(room)
	s.broadcastStatus(room)

	if len(room.Active) >= 2 && !room.Round.InProgress {
		s.startRound(room)
	}
}

// fillActiveSlots promotes queued players into free slots. A promoted
// player's ready flag is preserved; they may have readied while queued.
func (s *Service) fillActiveSlots(room *Room) {
	promoted := false
	for len(room.Active) < room.Settings.MaxPlayers && len(room.Queue) > 0 {
		next := room.Queue[0]
		room.Queue = room.Queue[1:]

		entry, ok := room.Players[next]
		if !ok {
			continue
		}
		entry.Slot = room.assignSlot(next)
		room.Active = append(room.Active, next)
		promoted = true

		s.log.Info("player promoted from queue",
			zap.String("roomID", room.ID),
			zap.String("participantID", next),
			zap.Int("slot", entry.Slot))
		s.notifier.ToParticipant(next, comms.ToMessage(PromotedToActiveResponse{
			RoomID:       room.ID,
			PlayerNumber: entry.Slot,
		}))
	}
	if !promoted {
		return
	}

	s.broadcastStatus(room)

	if len(room.Active) >= 2 && !room.Round.InProgress && room.allActiveReady() {
		s.startRound(room)
	} else if len(room.Active) == room.Settings.MaxPlayers && !room.Round.InProgress {
		ready := comms.ToMessage(GameReadyBroadcast{RoomID: room.ID, Players: append([]string(nil), room.Active...)})
		for _, id := range room.Active {
			s.notifier.ToParticipant(id, ready)
		}
	}
}
