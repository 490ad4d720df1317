package firestore_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/contactbook/pkg/repository/firestore"
)

func TestMessageDocID(t *testing.T) {
	partner := firestore.MessageDocID("", "C001", "1612345678.000100")
	gt.Value(t, firestore.MessageDocID("", "C001", "1612345678.000100")).Equal(partner)
	gt.Value(t, firestore.MessageDocID("", "C002", "1612345678.000100")).NotEqual(partner)

	// the same Slack message recorded in the funder collections
	gt.Value(t, firestore.MessageDocID("funder", "C001", "1612345678.000100")).NotEqual(partner)
}
