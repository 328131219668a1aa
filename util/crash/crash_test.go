package crash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFireAlways(t *testing.T) {
	inj := NewInjector(NewTeventMap(NewEvent(RESUME, 3)))
	for i := 0; i < 3; i++ {
		e, ok := inj.Fire(RESUME)
		assert.True(t, ok)
		assert.Equal(t, uint32(3), e.Status)
	}
	_, ok := inj.Fire(RETYPE)
	assert.False(t, ok)
	assert.Equal(t, 3, inj.Raised(RESUME))
}

func TestFireStartN(t *testing.T) {
	inj := NewInjector(NewTeventMap(NewEvent(RETYPE, 10, WithStart(1), WithN(1))))
	_, ok := inj.Fire(RETYPE)
	assert.False(t, ok, "first retype passes")
	_, ok = inj.Fire(RETYPE)
	assert.True(t, ok, "second retype fails")
	_, ok = inj.Fire(RETYPE)
	assert.False(t, ok, "only once")
}

func TestEnv(t *testing.T) {
	em := NewTeventMap(NewEvent(SCHEDCONTROL, 4, WithProb(1.0)), NewEvent(RESUME, 3, WithN(1)))
	t.Setenv(CAPBOOTFAIL, "")
	assert.Nil(t, SetCapbootFail(em))
	em1, err := GetEvents()
	assert.Nil(t, err)
	assert.Equal(t, em, em1)

	t.Setenv(CAPBOOTFAIL, "{bogus")
	_, err = GetEvents()
	assert.NotNil(t, err)
}

func TestNilInjector(t *testing.T) {
	inj := NewInjector(nil)
	_, ok := inj.Fire(RESUME)
	assert.False(t, ok)
}

func TestParseEvents(t *testing.T) {
	em, err := ParseEvents(`[{"label":"resume","status":3},{"label":"retype","start":1}]`)
	assert.Nil(t, err)
	assert.Equal(t, 2, em.Len())
	e, ok := em.Lookup(RETYPE)
	assert.True(t, ok)
	assert.Equal(t, 1, e.Start)
	_, ok = em.Lookup(TCBCONFIGURE)
	assert.False(t, ok)

	em, err = ParseEvents("")
	assert.Nil(t, err)
	assert.Equal(t, 0, em.Len())

	_, err = ParseEvents(`[{"label":"reboot"}]`)
	assert.ErrorContains(t, err, "unknown invocation")
	_, err = ParseEvents(`[{"label":"resume"},{"label":"resume","n":2}]`)
	assert.ErrorContains(t, err, "two events")
}

func TestMarshalOrdered(t *testing.T) {
	em := NewTeventMap(NewEvent(WRITEREGS, 1), NewEvent(RESUME, 2))
	b, err := em.MarshalJSON()
	assert.Nil(t, err)
	assert.Equal(t, `[{"label":"resume","prob":0,"start":0,"n":0,"status":2},{"label":"writeregisters","prob":0,"start":0,"n":0,"status":1}]`, string(b))
}
