package core

// DBOrdering is a storage-agnostic ORDER BY clause. Repositories map Field
// onto their own column whitelist before using it.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
