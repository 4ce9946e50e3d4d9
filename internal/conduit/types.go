package conduit

import "github.com/tidwall/gjson"

// Transaction is one entry of transaction.search.
type Transaction struct {
	ID          int64
	PHID        string
	Type        string
	AuthorPHID  string
	DateCreated int64
	Comments    []Comment
	Fields      InlineFields
}

// Comment is a comment attached to a transaction.
type Comment struct {
	ID  int64
	Raw string
}

// InlineFields holds the fields Phabricator attaches to inline transactions.
// They are zero for other transaction types.
type InlineFields struct {
	Path   string
	Line   int
	Length int
	DiffID string
	IsDone bool
}

// User is one entry of user.search.
type User struct {
	PHID     string
	Username string
	RealName string
}

// DisplayName renders the user as "Real Name (username)", falling back to
// whichever part is present and finally to the PHID.
func (u User) DisplayName() string {
	switch {
	case u.RealName != "" && u.Username != "":
		return u.RealName + " (" + u.Username + ")"
	case u.RealName != "":
		return u.RealName
	case u.Username != "":
		return u.Username
	default:
		return u.PHID
	}
}

func parseTransaction(v gjson.Result) Transaction {
	tx := Transaction{
		ID:          v.Get("id").Int(),
		PHID:        v.Get("phid").String(),
		Type:        v.Get("type").String(),
		AuthorPHID:  v.Get("authorPHID").String(),
		DateCreated: v.Get("dateCreated").Int(),
	}
	v.Get("comments").ForEach(func(_, c gjson.Result) bool {
		tx.Comments = append(tx.Comments, Comment{
			ID:  c.Get("id").Int(),
			Raw: c.Get("content.raw").String(),
		})
		return true
	})

	fields := v.Get("fields")
	tx.Fields = InlineFields{
		Path:   fields.Get("path").String(),
		Line:   int(fields.Get("line").Int()),
		Length: 1,
		IsDone: fields.Get("isDone").Bool(),
	}
	if length := fields.Get("length"); length.Exists() && length.Type == gjson.Number {
		tx.Fields.Length = int(length.Int())
	}
	if id := fields.Get("diff.id"); id.Exists() && id.Type != gjson.Null {
		tx.Fields.DiffID = id.String()
	}
	return tx
}

func parseUser(v gjson.Result) User {
	return User{
		PHID:     v.Get("phid").String(),
		Username: v.Get("fields.username").String(),
		RealName: v.Get("fields.realName").String(),
	}
}
