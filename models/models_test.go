package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidMissionStatus(t *testing.T) {
	for _, s := range []string{MissionOpen, MissionInProgress, MissionAwaitingConfirmation, MissionCompleted, MissionCancelled} {
		assert.True(t, ValidMissionStatus(s), s)
	}
	assert.False(t, ValidMissionStatus("pending"))
	assert.False(t, ValidMissionStatus(""))
}

func TestNotificationPrefAllows(t *testing.T) {
	pref := NotificationPref{AllowPayment: false, AllowMission: true, AllowChat: false, AllowGeneral: true}

	assert.False(t, pref.Allows("payment"))
	assert.True(t, pref.Allows("mission"))
	assert.False(t, pref.Allows("chat"))

	// Categorias desconhecidas caem no opt-in geral.
	assert.True(t, pref.Allows("general"))
	assert.True(t, pref.Allows("promo"))
}
