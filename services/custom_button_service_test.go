package services

import (
	"context"
	"encoding/json"
	"testing"

	"custombuttons-restful/models"
	"custombuttons-restful/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.CustomButton{},
		&models.Role{}, &models.Permission{}, &models.User{},
		&models.Dialog{}, &models.AutomateDomain{}, &models.AutomateInstance{},
	))
	return db
}

func newTestService(t *testing.T) CustomButtonService {
	t.Helper()
	repo := repositories.NewCustomButtonRepository(setupTestDB(t))
	return NewCustomButtonService(repo, zap.NewNop().Sugar())
}

func mustAttrs(t *testing.T, body string) Attributes {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	attrs, err := ParseAttributes(raw, "id", "href", "action")
	require.NoError(t, err)
	return attrs
}

func TestCreateEchoesSubmittedFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	button, err := svc.Create(ctx, mustAttrs(t, `{
		"name": "Generic Object Custom Button",
		"description": "Generic Object Custom Button description",
		"applies_to_class": "GenericObjectDefinition",
		"options": {"button_icon": "ff ff-view-expanded", "button_color": "#4727ff", "display": true}
	}`))
	require.NoError(t, err)

	assert.NotZero(t, button.ID)
	assert.NotEmpty(t, button.GUID)
	assert.Equal(t, "Generic Object Custom Button", button.Name)
	assert.Equal(t, "GenericObjectDefinition", button.AppliesToClass)
	assert.Nil(t, button.AppliesToID)
	assert.Equal(t, []string{"button_icon", "button_color", "display"}, button.Options.Keys())

	other, err := svc.Create(ctx, mustAttrs(t, `{"name": "second"}`))
	require.NoError(t, err)
	assert.NotEqual(t, button.ID, other.ID)
	assert.Equal(t, "{}", string(other.Options))
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := map[string]struct {
		body  string
		field string
	}{
		"missing name":          {`{"description": "x"}`, "name"},
		"blank name":            {`{"name": "  "}`, "name"},
		"id without class":      {`{"name": "x", "applies_to_id": 3}`, "applies_to_class"},
		"duplicate in scope":    {`{"name": "taken"}`, "name"},
		"options not an object": {`{"name": "x", "options": [1]}`, "options"},
	}
	_, err := svc.Create(ctx, mustAttrs(t, `{"name": "taken"}`))
	require.NoError(t, err)

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var raw map[string]json.RawMessage
			require.NoError(t, json.Unmarshal([]byte(tc.body), &raw))
			attrs, err := ParseAttributes(raw)
			if err == nil {
				_, err = svc.Create(ctx, attrs)
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestSameNameInDifferentScopes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, mustAttrs(t, `{"name": "custom_button", "applies_to_class": "GenericObjectDefinition", "applies_to_id": "12"}`))
	require.NoError(t, err)
	_, err = svc.Create(ctx, mustAttrs(t, `{"name": "custom_button"}`))
	require.NoError(t, err)
}

func TestParseAttributesRejectsUnknownAndReadOnly(t *testing.T) {
	_, err := ParseAttributes(map[string]json.RawMessage{"colour": json.RawMessage(`"red"`)})
	assert.ErrorContains(t, err, "unknown attribute")

	_, err = ParseAttributes(map[string]json.RawMessage{"guid": json.RawMessage(`"abc"`)})
	assert.ErrorContains(t, err, "read-only")

	attrs, err := ParseAttributes(map[string]json.RawMessage{"applies_to_id": json.RawMessage(`null`)})
	require.NoError(t, err)
	assert.True(t, attrs.AppliesToIDSet)
	assert.Nil(t, attrs.AppliesToID)
}

func TestEditAndReplace(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	button, err := svc.Create(ctx, mustAttrs(t, `{"name": "b", "description": "d", "applies_to_class": "Vm", "options": {"display": true}}`))
	require.NoError(t, err)

	edited, err := svc.Edit(ctx, button.ID, mustAttrs(t, `{"name": "updated 1"}`))
	require.NoError(t, err)
	assert.Equal(t, "updated 1", edited.Name)
	assert.Equal(t, "d", edited.Description)
	assert.Equal(t, "Vm", edited.AppliesToClass)

	replaced, err := svc.Replace(ctx, button.ID, mustAttrs(t, `{"name": "replaced", "description": "new"}`))
	require.NoError(t, err)
	assert.Equal(t, "replaced", replaced.Name)
	assert.Equal(t, "new", replaced.Description)
	assert.Empty(t, replaced.AppliesToClass)
	assert.Equal(t, "{}", string(replaced.Options))
	assert.Equal(t, button.GUID, replaced.GUID)

	_, err = svc.Replace(ctx, button.ID, mustAttrs(t, `{"description": "no name"}`))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Edit(ctx, 4242, mustAttrs(t, `{"name": "x"}`))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFailedEditLeavesRecordUntouched(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	button, err := svc.Create(ctx, mustAttrs(t, `{"name": "b", "description": "original"}`))
	require.NoError(t, err)

	_, err = svc.Edit(ctx, button.ID, mustAttrs(t, `{"description": "changed", "applies_to_id": 9}`))
	require.Error(t, err)

	got, err := svc.Get(ctx, button.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Description)
	assert.Nil(t, got.AppliesToID)
}

func TestPatchAppliesOperationsInOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	button, err := svc.Create(ctx, mustAttrs(t, `{"name": "b", "options": {"button_icon": "fa-a", "display": false}}`))
	require.NoError(t, err)

	ops := []PatchOperation{
		{Action: "edit", Path: "name", Value: json.RawMessage(`"A"`)},
		{Action: "edit", Path: "name", Value: json.RawMessage(`"B"`)},
		{Action: "edit", Path: "/description", Value: json.RawMessage(`"patched"`)},
		{Action: "add", Path: "options/button_color", Value: json.RawMessage(`"#4727ff"`)},
		{Action: "edit", Path: "options/display", Value: json.RawMessage(`true`)},
		{Action: "remove", Path: "options/button_icon"},
	}
	patched, err := svc.Patch(ctx, button.ID, ops)
	require.NoError(t, err)

	assert.Equal(t, "B", patched.Name)
	assert.Equal(t, "patched", patched.Description)
	assert.Equal(t, []string{"display", "button_color"}, patched.Options.Keys())
	assert.True(t, patched.Options.Get("display").Bool())
}

func TestPatchRejectsBadOperations(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	button, err := svc.Create(ctx, mustAttrs(t, `{"name": "b"}`))
	require.NoError(t, err)

	for _, op := range []PatchOperation{
		{Action: "move", Path: "name", Value: json.RawMessage(`"x"`)},
		{Action: "edit", Path: "colour", Value: json.RawMessage(`"x"`)},
		{Action: "remove", Path: "name"},
		{Action: "edit", Path: "name"},
		{Action: "edit", Path: "", Value: json.RawMessage(`"x"`)},
	} {
		_, err := svc.Patch(ctx, button.ID, []PatchOperation{op})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "%+v", op)
	}

	got, err := svc.Get(ctx, button.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Name)
}

func TestBulkEditReportsEachItem(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, mustAttrs(t, `{"name": "a"}`))
	require.NoError(t, err)
	b, err := svc.Create(ctx, mustAttrs(t, `{"name": "b"}`))
	require.NoError(t, err)

	results := svc.BulkEdit(ctx, []BulkItem{
		{ID: a.ID, Attributes: mustAttrs(t, `{"name": "updated 1"}`)},
		{ID: 9999, Attributes: mustAttrs(t, `{"name": "ghost"}`)},
		{Err: invalid("id", "missing")},
		{ID: b.ID, Attributes: mustAttrs(t, `{"name": "updated 2"}`)},
	})
	require.Len(t, results, 4)

	require.NoError(t, results[0].Err)
	assert.Equal(t, a.ID, results[0].ID)
	assert.Equal(t, "updated 1", results[0].Button.Name)
	assert.ErrorIs(t, results[1].Err, ErrNotFound)
	assert.Error(t, results[2].Err)
	require.NoError(t, results[3].Err)
	assert.Equal(t, "updated 2", results[3].Button.Name)
}

func TestBulkDeleteContinuesAfterFailure(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, mustAttrs(t, `{"name": "a"}`))
	require.NoError(t, err)
	b, err := svc.Create(ctx, mustAttrs(t, `{"name": "b"}`))
	require.NoError(t, err)

	results := svc.BulkDelete(ctx, []BulkItem{{ID: a.ID}, {ID: 9999}, {ID: b.ID}})
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrNotFound)
	assert.NoError(t, results[2].Err)

	_, total, err := svc.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestParseActionAndIDs(t *testing.T) {
	for in, want := range map[string]Action{"": ActionCreate, "create": ActionCreate, "Edit": ActionEdit, "delete": ActionDelete} {
		got, err := ParseAction(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseAction("refresh")
	assert.Error(t, err)

	id, err := ParseID(json.RawMessage(`"42"`))
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	id, err = ParseID(json.RawMessage(`42`))
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	_, err = ParseID(json.RawMessage(`"abc"`))
	assert.Error(t, err)

	id, err = IDFromHref("http://localhost/api/custom_buttons/17", "custom_buttons")
	require.NoError(t, err)
	assert.Equal(t, uint(17), id)
	_, err = IDFromHref("http://localhost/api/dialogs/17", "custom_buttons")
	assert.Error(t, err)
}
