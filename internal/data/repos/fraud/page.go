package fraud

const (
	DefaultPerPage = 50
	MaxPerPage     = 200
)

// Page is a 1-based page request.
type Page struct {
	Page    int
	PerPage int
}

func (p Page) normalized() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

func (p Page) Offset() int {
	n := p.normalized()
	return (n.Page - 1) * n.PerPage
}

func (p Page) Limit() int {
	return p.normalized().PerPage
}
