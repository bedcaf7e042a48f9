package db

import (
	"math"
	"time"
)

// Ranks older than this decay to zero
const rankWindow = 7 * 24 * time.Hour

// HotRank favours recent, well scored content
func HotRank(score int64, published, now time.Time) float64 {
	age := now.Sub(published)
	if age < 0 {
		age = 0
	}
	if age >= rankWindow {
		return 0
	}
	hours := age.Hours()
	return math.Log10(math.Max(2, float64(score+2))) / math.Pow(hours+2, 1.8)
}

// ControversyRank is high when many votes split evenly
func ControversyRank(upvotes, downvotes int64) float64 {
	if upvotes <= 0 || downvotes <= 0 {
		return 0
	}
	up, down := float64(upvotes), float64(downvotes)
	balance := down / up
	if upvotes <= downvotes {
		balance = up / down
	}
	return math.Pow(up+down, balance)
}

// ScaledRank boosts small communities so they are not drowned out by big ones
func ScaledRank(hotRank float64, usersActiveMonth int64) float64 {
	return hotRank / math.Log10(2+float64(max(usersActiveMonth, 0)))
}
