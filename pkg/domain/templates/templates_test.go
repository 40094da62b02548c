package templates

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/craigmcc/cityteam-guests-client/pkg/domain/matlist"
	"github.com/craigmcc/cityteam-guests-client/pkg/domain/validation"
	"github.com/craigmcc/cityteam-guests-client/pkg/repository/model"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ActiveTemplates(ctx context.Context, facilityID int64) ([]model.Template, error) {
	args := m.Called(ctx, facilityID)
	out, _ := args.Get(0).([]model.Template)
	return out, args.Error(1)
}

func (m *MockStore) InsertTemplate(ctx context.Context, t model.Template) (model.Template, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(model.Template), args.Error(1)
}

func (m *MockStore) UpdateTemplate(ctx context.Context, t model.Template) (model.Template, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(model.Template), args.Error(1)
}

func (m *MockStore) CheckTemplateNameUnique(ctx context.Context, facilityID int64, name string, excludingID int64) (bool, error) {
	args := m.Called(ctx, facilityID, name, excludingID)
	return args.Bool(0), args.Error(1)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) InvalidateTemplates(ctx context.Context, facilityID int64) error {
	return m.Called(ctx, facilityID).Error(0)
}

func TestParseCommand(t *testing.T) {
	tpl, err := ParseCommand(3, " Standard ; 1-24 ; 1-2 ; 10,12 ; winter layout ")
	require.NoError(t, err)
	assert.Equal(t, int64(3), tpl.FacilityID)
	assert.Equal(t, "Standard", tpl.Name)
	assert.Equal(t, "1-24", tpl.AllMats)
	assert.Equal(t, "1-2", tpl.HandicapMats)
	assert.Equal(t, "10,12", tpl.SocketMats)
	require.NotNil(t, tpl.Comments)
	assert.Equal(t, "winter layout", *tpl.Comments)

	tpl, err = ParseCommand(3, "Small;1-5;;")
	require.NoError(t, err)
	assert.Nil(t, tpl.Comments)
	assert.Equal(t, "", tpl.SocketMats)

	_, err = ParseCommand(3, "just a name")
	assert.ErrorIs(t, err, ErrCommandFormat)
}

func TestSaveInsert(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	inv := new(MockInvalidator)
	svc := NewService(store, validation.New(store, nil), inv, zerolog.Nop())

	in := model.Template{FacilityID: 3, Name: "Standard", AllMats: "1-4", HandicapMats: "1", SocketMats: "1-2"}
	want := in
	want.Active = true

	store.On("ActiveTemplates", ctx, int64(3)).Return([]model.Template{{ID: 8, Name: "Other"}}, nil)
	store.On("CheckTemplateNameUnique", ctx, int64(3), "Standard", int64(0)).Return(true, nil)
	store.On("InsertTemplate", ctx, want).Return(model.Template{ID: 9, FacilityID: 3, Name: "Standard"}, nil)
	inv.On("InvalidateTemplates", ctx, int64(3)).Return(nil)

	saved, err := svc.Save(ctx, in)
	require.NoError(t, err)
	assert.True(t, saved.Created)
	assert.Equal(t, int64(9), saved.Template.ID)
	assert.Equal(t, []matlist.Mat{{Number: 1, Feature: "HS"}, {Number: 2, Feature: "S"}, {Number: 3}, {Number: 4}}, saved.Mats)
	assert.Equal(t, "4 mats (1 handicap, 2 socket): 1HS,2S,3,4", Preview(saved.Mats))

	store.AssertNotCalled(t, "UpdateTemplate", mock.Anything, mock.Anything)
	inv.AssertExpectations(t)
}

func TestSaveUpdatesSameName(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	inv := new(MockInvalidator)
	svc := NewService(store, validation.New(store, nil), inv, zerolog.Nop())

	store.On("ActiveTemplates", ctx, int64(3)).Return([]model.Template{{ID: 8, Name: "Standard"}}, nil)
	store.On("CheckTemplateNameUnique", ctx, int64(3), "Standard", int64(8)).Return(true, nil)
	store.On("UpdateTemplate", ctx, mock.MatchedBy(func(t model.Template) bool { return t.ID == 8 })).
		Return(model.Template{ID: 8, Name: "Standard"}, nil)
	inv.On("InvalidateTemplates", ctx, int64(3)).Return(errors.New("redis down"))

	saved, err := svc.Save(ctx, model.Template{FacilityID: 3, Name: "standard", AllMats: "1-2"})
	require.NoError(t, err, "cache failures do not fail the save")
	assert.False(t, saved.Created)
}

func TestSaveValidationError(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	svc := NewService(store, validation.New(store, nil), nil, zerolog.Nop())

	store.On("ActiveTemplates", ctx, int64(3)).Return(nil, nil)
	store.On("CheckTemplateNameUnique", ctx, int64(3), "Bad", int64(0)).Return(true, nil)

	_, err := svc.Save(ctx, model.Template{FacilityID: 3, Name: "Bad", AllMats: "1-4", SocketMats: "9"})
	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "socketMats")
	store.AssertNotCalled(t, "InsertTemplate", mock.Anything, mock.Anything)
}
