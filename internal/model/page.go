package model

// Page is one slice of a post listing.
type Page struct {
	Posts   []*Post
	Number  int
	PerPage int
	Total   int
}

// ClampPage turns a requested page number into a valid one: anything below 1
// becomes 1 and anything past the end becomes the last page.
func ClampPage(number, perPage, total int) int {
	last := NumPages(perPage, total)
	if number < 1 {
		return 1
	}
	if number > last {
		return last
	}
	return number
}

// NumPages is at least 1 so an empty listing still renders page 1.
func NumPages(perPage, total int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

func (p *Page) Offset() int { return (p.Number - 1) * p.PerPage }

func (p *Page) NumPages() int { return NumPages(p.PerPage, p.Total) }

func (p *Page) HasPrevious() bool { return p.Number > 1 }

func (p *Page) HasNext() bool { return p.Number < p.NumPages() }

func (p *Page) PreviousPageNumber() int { return p.Number - 1 }

func (p *Page) NextPageNumber() int { return p.Number + 1 }

func (p *Page) HasOtherPages() bool { return p.NumPages() > 1 }

// Contains reports whether a post with the given id is on this page.
func (p *Page) Contains(postID int) bool {
	for _, post := range p.Posts {
		if post.ID == postID {
			return true
		}
	}
	return false
}
