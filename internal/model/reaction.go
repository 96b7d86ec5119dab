package model

type Reaction struct {
	Type string `json:"type" redis:"type"`
	Time string `json:"time" redis:"time"`
	Note string `json:"note" redis:"note"`
}

var ReactionTypes = []string{"heart", "hug", "kiss", "fire", "star", "kudos"}
