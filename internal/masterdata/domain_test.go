package masterdata

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestProjectInputValidate(t *testing.T) {
	in := ProjectInput{Name: "Bytovy dom Ruzinov", Code: "BD-RUZ", IsActive: true}
	require.NoError(t, in.Validate())

	require.ErrorIs(t, ProjectInput{Code: "BD-RUZ"}.Validate(), ErrInvalidInput)
	require.ErrorIs(t, ProjectInput{Name: "Bytovy dom"}.Validate(), ErrInvalidInput)
	require.ErrorIs(t, ProjectInput{Name: "   ", Code: "X"}.Validate(), ErrInvalidInput)
}

func TestAssignmentInputValidate(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	in := AssignmentInput{AccommodationID: uuid.New(), UserID: uuid.New(), StartsOn: start, EndsOn: &end, Cost: 150}
	require.NoError(t, in.Validate())

	inverted := in
	before := start.AddDate(0, 0, -1)
	inverted.EndsOn = &before
	require.ErrorIs(t, inverted.Validate(), ErrInvalidInput)

	negative := in
	negative.Cost = -1
	require.ErrorIs(t, negative.Validate(), ErrInvalidInput)

	missing := in
	missing.UserID = uuid.Nil
	require.ErrorIs(t, missing.Validate(), ErrInvalidInput)
}

func TestSanctionInputValidate(t *testing.T) {
	in := SanctionInput{UserID: uuid.New(), Amount: 50, Reason: "missing safety gear", LeviedOn: time.Now()}
	require.NoError(t, in.Validate())

	noReason := in
	noReason.Reason = " "
	require.ErrorIs(t, noReason.Validate(), ErrInvalidInput)

	zeroAmount := in
	zeroAmount.Amount = 0
	require.ErrorIs(t, zeroAmount.Validate(), ErrInvalidInput)
}

func TestAdvanceInputValidate(t *testing.T) {
	in := AdvanceInput{UserID: uuid.New(), Amount: 200, PaidOn: time.Now()}
	require.NoError(t, in.Validate())

	in.Amount = -5
	require.ErrorIs(t, in.Validate(), ErrInvalidInput)
}
