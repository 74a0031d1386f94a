package manifest

// Store defines the interface for build-manifest operations. Consumers should
// depend on this interface rather than the concrete *DB type to facilitate
// testing with mocks.
type Store interface {
	UpsertArticle(a ArticleRow, body string) error
	DeleteArticle(path string) error
	GetArticle(path string) (*ArticleRow, error)
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	URLFor(path string) (string, error)
	ListArticles(limit, offset int, tag, sort string) ([]ArticleRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
