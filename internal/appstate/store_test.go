package appstate

import (
	"sync"
	"testing"

	"github.com/ageniuscoder/mmchat/client/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestAlerts(t *testing.T) {
	s := New()
	assert.Equal(t, 1, s.IncrementAlert("c2"))
	assert.Equal(t, 2, s.IncrementAlert("c2"))
	s.IncrementAlert("c1")

	assert.Equal(t, []Alert{{ChatID: "c1", Count: 1}, {ChatID: "c2", Count: 2}}, s.Alerts())

	s.ClearAlert("c2")
	assert.Zero(t, s.AlertCount("c2"))
	assert.Equal(t, 1, s.AlertCount("c1"))
}

func TestLogoutTearsDown(t *testing.T) {
	s := New()
	s.Login(&auth.Claims{UserID: "u1"})
	s.IncrementAlert("c1")
	assert.Equal(t, "u1", s.User().UserID)

	s.Logout()
	assert.Nil(t, s.User())
	assert.Empty(t, s.Alerts())
}

func TestConcurrentIncrements(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.IncrementAlert("c1")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, s.AlertCount("c1"))
}
