package sharevault

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/btcvault-go/access"
	"github.com/bitfsorg/btcvault-go/events"
	"github.com/bitfsorg/btcvault-go/feemath"
)

// rewardsCycle releases recognized profit linearly over fixed windows.
// stored tracks principal plus settled rewards; lastReward is the profit
// measured at the last settle, vesting between lastSync and end.
type rewardsCycle struct {
	length     time.Duration
	stored     sdkmath.Uint
	lastReward sdkmath.Uint
	lastSync   time.Time
	end        time.Time
}

func (c *rewardsCycle) enabled() bool { return c.length > 0 }

// restart begins a fresh cycle with nothing vesting.
func (c *rewardsCycle) restart(live sdkmath.Uint, now time.Time) {
	c.stored = live
	c.lastReward = sdkmath.ZeroUint()
	c.lastSync = now
	c.end = c.nextEnd(now)
}

// nextEnd aligns the cycle end to a multiple of the cycle length.
func (c *rewardsCycle) nextEnd(now time.Time) time.Time {
	secs := int64(c.length / time.Second)
	return time.Unix(((now.Unix()+secs)/secs)*secs, 0)
}

// vested returns the portion of lastReward released by now.
func (c *rewardsCycle) vested(now time.Time) sdkmath.Uint {
	if c.lastReward.IsZero() || !now.Before(c.end) {
		return c.lastReward
	}
	elapsed := now.Unix() - c.lastSync.Unix()
	span := c.end.Unix() - c.lastSync.Unix()
	if elapsed <= 0 || span <= 0 {
		return sdkmath.ZeroUint()
	}
	// lastReward * elapsed / span cannot overflow 256 bits in practice; on
	// overflow report nothing vested.
	v, err := feemath.MulDiv(c.lastReward, sdkmath.NewUint(uint64(elapsed)), sdkmath.NewUint(uint64(span)), feemath.Floor)
	if err != nil {
		return sdkmath.ZeroUint()
	}
	return v
}

func (c *rewardsCycle) total(now time.Time) sdkmath.Uint {
	return c.stored.Add(c.vested(now))
}

func (c *rewardsCycle) credit(amount sdkmath.Uint) {
	c.stored = c.stored.Add(amount)
}

// debit removes withdrawn assets. A withdrawal larger than stored pays out
// vested reward, so the vested part is promoted into stored first and the
// remainder re-anchored to vest from now until the cycle end.
func (c *rewardsCycle) debit(amount sdkmath.Uint, now time.Time) {
	if amount.GT(c.stored) && !c.lastReward.IsZero() {
		v := c.vested(now)
		c.stored = c.stored.Add(v)
		c.lastReward = c.lastReward.Sub(v)
		c.lastSync = now
	}
	c.stored = feemath.SaturatingSub(c.stored, amount)
}

// liveAssets is everything the vault can account for right now.
func (v *Vault) liveAssets() sdkmath.Uint {
	live := v.asset.BalanceOf(v.addr)
	if v.dispatcher != nil {
		live = live.Add(v.dispatcher.TotalAssets())
	}
	return live
}

// RewardsCycleEnd returns the end of the current cycle, or the zero time when
// smoothing is disabled.
func (v *Vault) RewardsCycleEnd() time.Time {
	if !v.rewards.enabled() {
		return time.Time{}
	}
	return v.rewards.end
}

// RewardsCycleLength returns the cycle length; zero means disabled.
func (v *Vault) RewardsCycleLength() time.Duration { return v.rewards.length }

// SetRewardsCycleLength changes the smoothing window. Enabling smoothing
// starts a cycle from the current live assets; a changed length applies from
// the next settle. Owner only.
func (v *Vault) SetRewardsCycleLength(caller common.Address, length time.Duration) error {
	if err := v.acl.RequireOwner(caller); err != nil {
		return err
	}
	if length < 0 || length%time.Second != 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCycleLength, length)
	}
	return v.journal.Atomic(func() error {
		wasEnabled := v.rewards.enabled()
		v.rewards.length = length
		if !wasEnabled && v.rewards.enabled() {
			v.rewards.restart(v.liveAssets(), v.journal.Now())
		}
		return nil
	})
}

// Settle closes the current rewards cycle. The reward measured at the
// previous settle becomes principal, the gap between live and stored assets
// becomes the next cycle's reward, and a shortfall is recognized as a loss
// at once. Settler role only.
func (v *Vault) Settle(caller common.Address) error {
	if err := v.acl.Require(access.RoleSettler, caller); err != nil {
		return err
	}
	if !v.rewards.enabled() {
		return ErrSmoothingDisabled
	}
	now := v.journal.Now()
	if now.Before(v.rewards.end) {
		return fmt.Errorf("%w: ends %s", ErrCycleNotEnded, v.rewards.end.UTC().Format(time.RFC3339))
	}

	return v.journal.Atomic(func() error {
		c := &v.rewards
		c.stored = c.stored.Add(c.lastReward)

		live := v.liveAssets()
		profit, loss := sdkmath.ZeroUint(), sdkmath.ZeroUint()
		if live.GTE(c.stored) {
			profit = live.Sub(c.stored)
		} else {
			loss = c.stored.Sub(live)
			c.stored = live
		}
		c.lastReward = profit
		c.lastSync = now
		c.end = c.nextEnd(now)

		v.journal.Emit(events.RewardsSettled{
			Profit:            profit,
			Loss:              loss,
			StoredTotalAssets: c.stored,
			CycleEnd:          c.end,
		})
		return nil
	})
}
