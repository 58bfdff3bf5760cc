package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosk/pkg/domain/model"
	"kiosk/pkg/domain/service"
)

func setupStatus(t *testing.T) (service.StatusService, service.CartService, *mockStatusSource) {
	t.Helper()
	repo := newMockCartRepository()
	dispatcher := &mockEventDispatcher{}
	catalog := model.DefaultCatalog()
	directory := model.NewDirectory(catalog.Machines())
	cart := service.NewCartService(repo, catalog, directory, dispatcher)
	source := &mockStatusSource{}
	return service.NewStatusService(source, directory, cart), cart, source
}

func allAvailable(catalog *model.Catalog) []model.MachineStatus {
	var statuses []model.MachineStatus
	for _, m := range catalog.Machines() {
		statuses = append(statuses, model.MachineStatus{MachineID: m.ID, State: model.StateAvailable})
	}
	return statuses
}

func TestWasherGroupsByCapacity(t *testing.T) {
	status, _, source := setupStatus(t)
	source.statuses = allAvailable(model.DefaultCatalog())

	groups, err := status.WasherGroups(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, "XL", groups[0].Label)
	assert.Len(t, groups[0].Machines, 3)
	assert.Equal(t, "L", groups[1].Label)
	assert.Len(t, groups[1].Machines, 4)
	assert.Equal(t, "M", groups[2].Label)
	assert.Len(t, groups[2].Machines, 4)

	for _, g := range groups {
		for _, m := range g.Machines {
			assert.True(t, m.Selectable)
		}
	}
}

func TestDryerGroupsByColumnPair(t *testing.T) {
	status, _, source := setupStatus(t)
	source.statuses = allAvailable(model.DefaultCatalog())

	groups, err := status.DryerGroups(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, groups, 5)

	assert.Equal(t, "Dryer 1 - 2", groups[0].Label)
	assert.Equal(t, "Dryer 9 - 10", groups[4].Label)
	require.Len(t, groups[0].Machines, 2)
	assert.Equal(t, 1, groups[0].Machines[0].Machine.ID)
	assert.Equal(t, 2, groups[0].Machines[1].Machine.ID)
}

func TestBusyMachinesAreHiddenUnlessRequested(t *testing.T) {
	status, _, source := setupStatus(t)
	source.statuses = []model.MachineStatus{
		{MachineID: 21, State: model.StateAvailable},
		{MachineID: 22, State: model.StateInUse, RemainingSeconds: 600},
	}

	groups, err := status.WasherGroups(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Machines, 1)
	assert.Equal(t, 21, groups[0].Machines[0].Machine.ID)

	groups, err = status.WasherGroups(context.Background(), true)
	require.NoError(t, err)
	total := 0
	for _, g := range groups {
		total += len(g.Machines)
	}
	assert.Equal(t, 11, total, "show-busy lists the whole inventory")
}

// An id missing from the feed must never read as available.
func TestUnreportedMachineIsQuarantined(t *testing.T) {
	status, _, source := setupStatus(t)
	source.statuses = []model.MachineStatus{
		{MachineID: 21, State: model.StateAvailable},
	}

	groups, err := status.WasherGroups(context.Background(), true)
	require.NoError(t, err)

	states := map[int]model.MachineState{}
	for _, g := range groups {
		for _, m := range g.Machines {
			states[m.Machine.ID] = m.State
		}
	}
	assert.Equal(t, model.StateAvailable, states[21])
	assert.Equal(t, model.StateUnknown, states[22])
}

func TestSelectedMachineStaysVisibleWhenBusy(t *testing.T) {
	status, cart, source := setupStatus(t)
	ctx := context.Background()

	require.NoError(t, cart.AddWasher(ctx, 21))
	source.statuses = []model.MachineStatus{
		{MachineID: 21, State: model.StateInUse, RemainingSeconds: 300},
		{MachineID: 22, State: model.StateAvailable},
	}

	groups, err := status.WasherGroups(ctx, false)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Machines, 2)

	byID := map[int]service.MachineListing{}
	for _, m := range groups[0].Machines {
		byID[m.Machine.ID] = m
	}
	assert.True(t, byID[21].Selected)
	assert.False(t, byID[21].Selectable, "busy machine stays visible but cannot be re-picked")
	assert.True(t, byID[22].Selectable)
}

func TestParseMachineState(t *testing.T) {
	assert.Equal(t, model.StateAvailable, model.ParseMachineState("AVAILABLE"))
	assert.Equal(t, model.StateAvailable, model.ParseMachineState(" available "))
	assert.Equal(t, model.StateInUse, model.ParseMachineState("IN_USE"))
	assert.Equal(t, model.StateComplete, model.ParseMachineState("COMPLETE"))
	assert.Equal(t, model.StateUnknown, model.ParseMachineState("REBOOTING"))
	assert.Equal(t, model.StateUnknown, model.ParseMachineState(""))
}

var _ service.StatusSource = &mockStatusSource{}

type mockStatusSource struct {
	statuses []model.MachineStatus
}

func (m *mockStatusSource) MachineStatuses(_ context.Context) ([]model.MachineStatus, error) {
	return m.statuses, nil
}
