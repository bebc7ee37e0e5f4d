package extract

// Ordered candidate lists for each canonical review field. Order is a
// contract: earlier entries always beat later ones, so generic patterns
// sit at the tail where they only fire when nothing specific matched.
var (
	IDCandidates = []Candidate{
		Key("reviewId"),
		Key("review_id"),
		Pattern(`(^|\.)review\.?id$`),
		Key("id"),
		Pattern(`(^|\.)id$`),
	}

	RatingCandidates = []Candidate{
		Key("rating"),
		Key("stars"),
		Key("starRating"),
		Key("star_rating"),
		Pattern(`(^|\.)(rating|stars)$`),
		Key("score"),
	}

	AuthorCandidates = []Candidate{
		Key("author"),
		Key("reviewerName"),
		Key("reviewer_name"),
		Key("reviewer"),
		Key("userName"),
		Key("customerName"),
		Pattern(`(^|\.)(author|reviewer)(\.name)?$`),
	}

	// Text candidates: the "text" family outranks the "comment" family,
	// which outranks everything looser. Tests pin this order.
	TextCandidates = []Candidate{
		Key("text"),
		Key("reviewText"),
		Key("review_text"),
		Pattern(`(^|\.)text$`),
		Key("comment"),
		Key("reviewComment"),
		Pattern(`(^|\.)comment$`),
		Key("content"),
		Key("body"),
		Pattern(`(^|\.)(description|feedback|message)$`),
	}

	URLCandidates = []Candidate{
		Key("publicUrl"),
		Key("public_url"),
		Key("reviewUrl"),
		Key("review_url"),
		Key("url"),
		Key("permalink"),
		Pattern(`(^|\.)(url|link)$`),
	}

	ProviderCandidates = []Candidate{
		Key("contentProvider"),
		Key("content_provider"),
		Key("provider"),
		Key("source"),
		Key("platform"),
		Key("site"),
	}

	LocationIDCandidates = []Candidate{
		Key("locationId"),
		Key("location_id"),
		Pattern(`(^|\.)location\.?id$`),
		Key("location"),
		Key("storeId"),
	}

	LocationNameCandidates = []Candidate{
		Key("locationName"),
		Key("location_name"),
		Pattern(`(^|\.)location\.name$`),
		Key("businessName"),
	}

	DateCandidates = []Candidate{
		Key("reviewDate"),
		Key("review_date"),
		Key("createdAt"),
		Key("created_at"),
		Key("dateCreated"),
		Key("date"),
		Key("timestamp"),
		Pattern(`(^|\.)(created|date|time)(\.at)?$`),
	}
)
