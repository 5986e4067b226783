package mongostore

import (
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/query"
)

// exactRegex matches a whole field equal to s, ignoring case.
func exactRegex(s string) bson.Regex {
	return bson.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}

func levelStrings(levels []model.Level) bson.A {
	out := make(bson.A, len(levels))
	for i, l := range levels {
		out[i] = string(l)
	}
	return out
}

// skillFilterDoc pushes the structured catalog predicates down to Mongo.
// Text terms stay with the search stage: its Unicode folding matches more
// than a case-insensitive $regex does ("ss" matches "Straße").
func skillFilterDoc(f query.SkillFilter) bson.D {
	doc := bson.D{{Key: "is_active", Value: true}}
	if f.Category != "" {
		doc = append(doc, bson.E{Key: "category", Value: string(f.Category)})
	}
	if len(f.Levels) > 0 {
		doc = append(doc, bson.E{Key: "available_levels", Value: bson.D{{Key: "$in", Value: levelStrings(f.Levels)}}})
	}
	switch f.Intent {
	case query.IntentTeaching:
		doc = append(doc, bson.E{Key: "stats.teaching_users", Value: bson.D{{Key: "$gt", Value: 0}}})
	case query.IntentLearning:
		doc = append(doc, bson.E{Key: "stats.learning_users", Value: bson.D{{Key: "$gt", Value: 0}}})
	}
	if f.MinRating > 0 {
		doc = append(doc, bson.E{Key: "stats.average_rating", Value: bson.D{{Key: "$gte", Value: f.MinRating}}})
	}
	return doc
}

// memberFilterDoc pushes the structured member predicates down to Mongo.
// Listing predicates become one $elemMatch so a single listing must satisfy
// all of them. Term and location are text and stay with the search stage.
func memberFilterDoc(f query.MemberFilter) bson.D {
	doc := bson.D{
		{Key: "is_active", Value: true},
		{Key: "skills.0", Value: bson.D{{Key: "$exists", Value: true}}},
	}
	if f.MinRating > 0 {
		doc = append(doc, bson.E{Key: "stats.rating", Value: bson.D{{Key: "$gte", Value: f.MinRating}}})
	}

	listing := bson.D{}
	if f.Category != "" {
		listing = append(listing, bson.E{Key: "category", Value: string(f.Category)})
	}
	if len(f.Levels) > 0 {
		listing = append(listing, bson.E{Key: "level", Value: bson.D{{Key: "$in", Value: levelStrings(f.Levels)}}})
	}
	switch f.Intent {
	case query.IntentTeaching:
		listing = append(listing, bson.E{Key: "is_teaching", Value: true})
	case query.IntentLearning:
		listing = append(listing, bson.E{Key: "is_learning", Value: true})
	}
	if len(listing) > 0 {
		doc = append(doc, bson.E{Key: "skills", Value: bson.D{{Key: "$elemMatch", Value: listing}}})
	}
	return doc
}
