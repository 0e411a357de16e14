package domain

type Permission struct {
	ID          string
	Name        string
	Description string
	Category    string
	Active      bool
}
