package reaction

import (
	"errors"
	"fmt"
)

type Type string

const (
	TypeLike    Type = "LIKE"
	TypeDislike Type = "DISLIKE"
)

// TargetKind distinguishes the two instantiations of the engine. The state
// machine is identical for both.
type TargetKind string

const (
	KindDocument TargetKind = "document"
	KindBook     TargetKind = "book"
)

var (
	ErrTargetNotFound = errors.New("target not found")
	ErrUnknownType    = errors.New("unknown reaction type")
)

func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeLike, TypeDislike:
		return Type(s), nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownType)
	}
}

type Counts struct {
	Likes    int64
	Dislikes int64
}

// Summary is recomputed from the store on every request, never cached.
type Summary struct {
	TargetID     int64 `json:"targetId"`
	LikeCount    int64 `json:"likeCount"`
	DislikeCount int64 `json:"dislikeCount"`
	MyReaction   *Type `json:"myReaction"`
}
