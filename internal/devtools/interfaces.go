package devtools

import (
	"picturemission/internal/catalog"
	"picturemission/internal/progress"
)

type Demo interface {
	Resolve(name string) Scenario
	Seed(sc Scenario, cat catalog.Catalog) progress.Document
	Names() []string
}
