package policy

type Right string

const (
	Read   Right = "read"
	Create Right = "create"
	Update Right = "update"
	Delete Right = "delete"
	Manage Right = "manage"
)

var AllRights = []Right{Read, Create, Update, Delete, Manage}

type RightSet map[Right]bool

func (r RightSet) Can(right Right) bool { return r[right] }

// List returns granted rights in canonical order.
func (r RightSet) List() []Right {
	out := make([]Right, 0, len(r))
	for _, right := range AllRights {
		if r[right] {
			out = append(out, right)
		}
	}
	return out
}

func grant(set RightSet, rights ...Right) {
	for _, right := range rights {
		set[right] = true
	}
}

// BankRights evaluates the question bank policy. held is the capability set
// of the actor in the bank's owning context (parent grants already merged).
func BankRights(held CapabilitySet, bookmarked bool) RightSet {
	rights := RightSet{}
	if held.Has(ManageAssignments) {
		grant(rights, AllRights...)
	}
	if held.Has(ReadQuestionBanks) {
		grant(rights, Read)
	}
	if bookmarked {
		grant(rights, Read)
	}
	return rights
}

// ContextRights covers bank operations that have no bank yet: creating one
// and listing the banks of a context.
func ContextRights(held CapabilitySet) RightSet {
	rights := RightSet{}
	if held.Has(ManageAssignments) {
		grant(rights, Read, Create, Manage)
	}
	if held.Has(ReadQuestionBanks) {
		grant(rights, Read)
	}
	return rights
}
