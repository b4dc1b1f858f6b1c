package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignTenOverThree(t *testing.T) {
	// 10 items over 3 domains: sizes [4,3,3].
	assert.Equal(t, []int{4, 3, 3}, Sizes(10, 3))

	place, err := Assign(9, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, place.Domain)
	assert.Equal(t, 3, place.SizeInDomain)
	assert.Equal(t, 2, place.PositionInDomain)

	place, err = Assign(0, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, place.Domain)
	assert.Equal(t, 4, place.SizeInDomain)
	assert.Equal(t, 0, place.PositionInDomain)

	place, err = Assign(4, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, place.Domain)
	assert.Equal(t, 3, place.SizeInDomain)
	assert.Equal(t, 0, place.PositionInDomain)
}

func TestAssignErrors(t *testing.T) {
	_, err := Assign(0, 0, 4)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = Assign(5, 5, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = Assign(-1, 5, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = Assign(0, 5, 0)
	assert.Error(t, err)
}

func TestBalanceProperty(t *testing.T) {
	for total := 0; total <= 37; total++ {
		for domains := 1; domains <= 9; domains++ {
			sizes := Sizes(total, domains)
			require.Len(t, sizes, domains)

			sum := 0
			min, max := sizes[0], sizes[0]
			for _, size := range sizes {
				sum += size
				if size < min {
					min = size
				}
				if size > max {
					max = size
				}
			}
			assert.Equal(t, total, sum, "total=%d domains=%d", total, domains)
			assert.LessOrEqual(t, max-min, 1, "total=%d domains=%d", total, domains)
		}
	}
}

func TestTotalityAndUniqueness(t *testing.T) {
	for total := 1; total <= 24; total++ {
		for domains := 1; domains <= 7; domains++ {
			seen := make(map[[2]int]bool)
			perDomain := make(map[int]int)
			for index := 0; index < total; index++ {
				place, err := Assign(index, total, domains)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, place.PositionInDomain, 0)
				assert.Less(t, place.PositionInDomain, place.SizeInDomain)

				key := [2]int{place.Domain, place.PositionInDomain}
				assert.False(t, seen[key], "duplicate placement total=%d domains=%d index=%d", total, domains, index)
				seen[key] = true
				perDomain[place.Domain]++
			}
			sizes := Sizes(total, domains)
			for domain, count := range perDomain {
				assert.Equal(t, sizes[domain], count)
			}
		}
	}
}

func TestDomainsConsumedInOrder(t *testing.T) {
	prev := 0
	for index := 0; index < 12; index++ {
		place, err := Assign(index, 12, 5)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, place.Domain, prev)
		prev = place.Domain
	}
}
