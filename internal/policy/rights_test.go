package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

func TestBankRights(t *testing.T) {
	tests := []struct {
		name       string
		held       CapabilitySet
		bookmarked bool
		want       []Right
	}{
		{name: "no capabilities", held: NewCapabilitySet(), want: []Right{}},
		{name: "manage assignments grants everything", held: NewCapabilitySet(ManageAssignments), want: AllRights},
		{name: "read question banks grants read", held: NewCapabilitySet(ReadQuestionBanks), want: []Right{Read}},
		{name: "bookmark grants read", held: NewCapabilitySet(), bookmarked: true, want: []Right{Read}},
		{name: "student bookmark", held: CapabilitiesFor(models.MembershipStudent), bookmarked: true, want: []Right{Read}},
		{name: "student without bookmark", held: CapabilitiesFor(models.MembershipStudent), want: []Right{}},
		{name: "teacher", held: CapabilitiesFor(models.MembershipTeacher), want: AllRights},
		{name: "ta reads only", held: CapabilitiesFor(models.MembershipTA), want: []Right{Read}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BankRights(tt.held, tt.bookmarked)
			assert.Equal(t, tt.want, got.List())
		})
	}
}

func TestContextRights(t *testing.T) {
	teacher := ContextRights(CapabilitiesFor(models.MembershipTeacher))
	assert.True(t, teacher.Can(Create))
	assert.True(t, teacher.Can(Read))
	assert.False(t, teacher.Can(Delete))

	ta := ContextRights(CapabilitiesFor(models.MembershipTA))
	assert.True(t, ta.Can(Read))
	assert.False(t, ta.Can(Create))

	student := ContextRights(CapabilitiesFor(models.MembershipStudent))
	assert.Empty(t, student.List())
}

func TestCapabilitySet_Union(t *testing.T) {
	a := NewCapabilitySet(ReadCourse)
	b := NewCapabilitySet(ManageFiles)

	u := a.Union(b)

	assert.Equal(t, []Capability{ManageFiles, ReadCourse}, u.Sorted())
	assert.False(t, a.Has(ManageFiles), "operands must not be modified")
}
