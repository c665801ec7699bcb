// Package score computes derived metrics and pattern detections from already-fetched data.
// Every function is pure: identical input always yields identical output.
package score

import (
	"unicode/utf8"

	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
)

// Suspicious-pattern labels.
const (
	PatternBotContent     = "high followers, low content"
	PatternAbnormalRatio  = "abnormal follower/following ratio"
	PatternSpamFollowing  = "excessive following relative to followers"
	PatternLowCompletion  = "low profile completion"
	PatternNoneSuspicious = "no suspicious patterns"
)

// Exposure-risk labels, one per privacy deduction.
const (
	RiskPublic     = "public profile"
	RiskExternal   = "external link present"
	RiskLongBio    = "detailed biography"
	RiskEmailInBio = "email address exposed in biography"
	RiskPhoneInBio = "phone number exposed in biography"
)

// Risk levels derived from the privacy score.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// Recommendations returned when the privacy score drops below 50.
var Recommendations = []string{
	"make the account private",
	"remove personal data from the biography",
	"enable two-factor authentication",
}

// Scores holds every derived metric for a target.
// SuspiciousPatterns is nil when the patterns were not checked (private accounts).
type Scores struct {
	SuspiciousPatterns  []string `json:"suspicious_patterns"`
	ExposureRisks       []string `json:"exposure_risks"`
	Recommendations     []string `json:"recommendations"`
	RiskLevel           string   `json:"risk_level"`
	EngagementPotential float64  `json:"engagement_potential"`
	InfluenceScore      float64  `json:"influence_score"`
	AuthenticityScore   float64  `json:"authenticity_score"`
	ProfileCompletion   float64  `json:"profile_completion"`
	PrivacyScore        float64  `json:"privacy_score"`
}

// Compute derives the Scores for p. For a private account only the privacy-related
// fields are populated.
func Compute(p *profile.Profile) Scores {
	privacy, risks := Privacy(p)
	s := Scores{
		PrivacyScore:  privacy,
		ExposureRisks: risks,
		RiskLevel:     RiskLevel(privacy),
	}
	if privacy < 50 {
		s.Recommendations = append([]string(nil), Recommendations...)
	} else {
		s.Recommendations = []string{}
	}
	if p.Private {
		return s
	}

	s.EngagementPotential = Engagement(p.Posts, p.Followers)
	s.InfluenceScore = Influence(p.Followers, p.Followees)
	s.AuthenticityScore = Authenticity(p)
	s.ProfileCompletion = Completion(p)
	s.SuspiciousPatterns = SuspiciousPatterns(p.Followers, p.Followees, p.Posts, s.ProfileCompletion)
	return s
}

// Engagement is the post-to-follower ratio scaled by 1000, capped at 100.
func Engagement(posts, followers int) float64 {
	if followers <= 0 {
		return 0
	}
	return clamp(float64(posts) / float64(followers) * 1000)
}

// Influence is the follower-to-followee ratio scaled by 10, capped at 100.
// An account that follows no one is maximally influential.
func Influence(followers, followees int) float64 {
	if followees <= 0 {
		return 100
	}
	return clamp(float64(followers) / float64(followees) * 10)
}

// Authenticity starts at 50 and rewards verification, a real biography, a link and reach.
func Authenticity(p *profile.Profile) float64 {
	s := 50.0
	if p.Verified {
		s += 20
	}
	if utf8.RuneCountInString(p.Biography) > 20 {
		s += 10
	}
	if p.ExternalURL != "" {
		s += 10
	}
	if p.Followers > 1000 {
		s += 10
	}
	return clamp(s)
}

// Completion awards 25 points each for a display name, biography, avatar and any posts.
func Completion(p *profile.Profile) float64 {
	var s float64
	if p.DisplayName != "" {
		s += 25
	}
	if p.Biography != "" {
		s += 25
	}
	if p.AvatarURL != "" {
		s += 25
	}
	if p.Posts > 0 {
		s += 25
	}
	return s
}

// Privacy returns the privacy score and the exposure risk behind each deduction.
func Privacy(p *profile.Profile) (float64, []string) {
	s := 100.0
	risks := []string{}
	if !p.Private {
		s -= 30
		risks = append(risks, RiskPublic)
	}
	if p.ExternalURL != "" {
		s -= 10
		risks = append(risks, RiskExternal)
	}
	if utf8.RuneCountInString(p.Biography) > 100 {
		s -= 5
		risks = append(risks, RiskLongBio)
	}
	if emailRE.MatchString(p.Biography) {
		s -= 20
		risks = append(risks, RiskEmailInBio)
	}
	if phoneRE.MatchString(p.Biography) {
		s -= 25
		risks = append(risks, RiskPhoneInBio)
	}
	return clamp(s), risks
}

// RiskLevel buckets a privacy score.
func RiskLevel(privacy float64) string {
	switch {
	case privacy < 30:
		return LevelHigh
	case privacy < 70:
		return LevelMedium
	default:
		return LevelLow
	}
}

// SuspiciousPatterns applies each bot/spam rule independently. It never returns an empty
// slice: a clean account yields the single PatternNoneSuspicious marker.
func SuspiciousPatterns(followers, followees, posts int, completion float64) []string {
	var out []string
	if followers > 10000 && posts < 10 {
		out = append(out, PatternBotContent)
	}
	if followees > 0 {
		ratio := float64(followers) / float64(followees)
		if ratio > 100 {
			out = append(out, PatternAbnormalRatio)
		}
		if ratio < 0.1 {
			out = append(out, PatternSpamFollowing)
		}
	}
	if completion < 50 {
		out = append(out, PatternLowCompletion)
	}
	if len(out) == 0 {
		return []string{PatternNoneSuspicious}
	}
	return out
}

func clamp(v float64) float64 {
	return min(100, max(0, v))
}
