package netchan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannel_Immediate(t *testing.T) {
	c := New[int](0)
	c.Send(1)
	c.Send(2)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []int{1, 2}, c.Drain())
	assert.Empty(t, c.Drain())
	assert.Equal(t, uint64(2), c.Sent())
}

func TestChannel_Delay(t *testing.T) {
	c := New[string](2)
	c.Send("a")
	assert.Empty(t, c.Drain())

	c.Advance()
	c.Send("b")
	assert.Empty(t, c.Drain())
	assert.Equal(t, 2, c.InFlight())

	c.Advance()
	assert.Equal(t, []string{"a"}, c.Drain())

	c.Advance()
	assert.Equal(t, []string{"b"}, c.Drain())
	assert.Zero(t, c.Len())
}

func TestChannel_PreservesOrder(t *testing.T) {
	c := New[int](3)
	var got []int
	for i := 0; i < 100; i++ {
		c.Send(i)
		c.Send(i + 1000)
		c.Advance()
		got = append(got, c.Drain()...)
	}
	for i := 0; i < 5; i++ {
		c.Advance()
		got = append(got, c.Drain()...)
	}

	var want []int
	for i := 0; i < 100; i++ {
		want = append(want, i, i+1000)
	}
	assert.Equal(t, want, got)
}

func TestChannel_NegativeDelay(t *testing.T) {
	c := New[int](-5)
	c.Send(7)
	assert.Equal(t, []int{7}, c.Drain())

	c.SetDelay(1)
	c.Send(8)
	assert.Empty(t, c.Drain())
	c.Advance()
	assert.Equal(t, []int{8}, c.Drain())
}

func TestChannel_Reset(t *testing.T) {
	c := New[int](2)
	c.Send(1)
	c.Advance()
	c.Send(2)
	c.Advance()
	c.Reset()
	assert.Zero(t, c.Len())

	c.Send(3)
	c.Advance()
	c.Advance()
	assert.Equal(t, []int{3}, c.Drain())
	assert.Equal(t, uint64(3), c.Sent())
}
