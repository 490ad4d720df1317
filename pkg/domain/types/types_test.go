package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/contactbook/pkg/domain/types"
)

func TestContactIDs(t *testing.T) {
	ids := types.ContactIDs([]string{"a", "", "b", "a", "c"})
	gt.Array(t, ids).Length(3).Required()
	gt.Value(t, ids[0]).Equal(types.ContactID("a"))
	gt.Value(t, ids[1]).Equal(types.ContactID("b"))
	gt.Value(t, ids[2]).Equal(types.ContactID("c"))

	gt.Array(t, types.ContactIDs(nil)).Length(0)
}

func TestOrganisationAndProgramIDs(t *testing.T) {
	gt.Array(t, types.OrganisationIDs([]string{"o1", "o1", "o2"})).Length(2)
	gt.Array(t, types.ProgramIDs([]string{"", "p1"})).Length(1)
}

func TestNewIDsAreUnique(t *testing.T) {
	gt.Value(t, types.NewContactID()).NotEqual(types.NewContactID())
	gt.String(t, types.NewMessageID().String()).NotEqual("")
}

func TestDataset(t *testing.T) {
	tests := []struct {
		name       string
		dataset    types.Dataset
		wantErr    bool
		restricted bool
	}{
		{"partner", types.DatasetPartner, false, false},
		{"funder", types.DatasetFunder, false, true},
		{"empty", "", true, false},
		{"unknown", "grantee", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dataset.Validate()
			gt.Value(t, err != nil).Equal(tt.wantErr)
			gt.Value(t, tt.dataset.Restricted()).Equal(tt.restricted)
		})
	}
}
