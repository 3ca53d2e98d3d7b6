package service

import (
	"questboard/internal/model"
)

const CommissionPercent = 5

type TierRange struct {
	Min int64
	Max int64
}

var tierRanges = map[model.DifficultyTier]TierRange{
	model.TierInitiate:   {Min: 100, Max: 1000},
	model.TierAdventurer: {Min: 1001, Max: 2500},
	model.TierChampion:   {Min: 2501, Max: 5000},
	model.TierMythic:     {Min: 5001, Max: 10000},
}

var tierXP = map[model.DifficultyTier]int{
	model.TierInitiate:   100,
	model.TierAdventurer: 250,
	model.TierChampion:   500,
	model.TierMythic:     1000,
}

// ComputeCommission returns ceil(budget * 5%).
func ComputeCommission(budget int64) int64 {
	return (budget*CommissionPercent + 99) / 100
}

func ComputeReward(budget int64) int64 {
	return budget - ComputeCommission(budget)
}

func TierRangeOf(tier model.DifficultyTier) (TierRange, error) {
	r, ok := tierRanges[tier]
	if !ok {
		return TierRange{}, ErrInvalidTier
	}
	return r, nil
}

func XPReward(tier model.DifficultyTier) int {
	return tierXP[tier]
}

// ValidateBudget checks a new quest's budget against its tier range and the creator's balance.
func ValidateBudget(budget int64, tier model.DifficultyTier, available int64) error {
	return validateRange(budget, tier, budget, available)
}

// ValidateBudgetEdit checks an edited budget; only the increase over oldBudget must be covered.
func ValidateBudgetEdit(newBudget, oldBudget int64, tier model.DifficultyTier, available int64) error {
	return validateRange(newBudget, tier, newBudget-oldBudget, available)
}

func validateRange(budget int64, tier model.DifficultyTier, required, available int64) error {
	r, err := TierRangeOf(tier)
	if err != nil {
		return err
	}
	if budget < r.Min || budget > r.Max {
		return ErrOutOfTierRange
	}
	if required > available {
		return ErrInsufficientBalance
	}
	return nil
}

// applyBudget sets budget, commission and reward together.
func applyBudget(q *model.Quest, budget int64) {
	q.GoldBudget = budget
	q.Commission = ComputeCommission(budget)
	q.GoldReward = budget - q.Commission
}
