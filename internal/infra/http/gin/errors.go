package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"rentboard/internal/app/idempotency"
	authsvc "rentboard/internal/app/services/auth"
	"rentboard/internal/app/services/catalog"
	"rentboard/internal/app/services/inbox"
	domainauth "rentboard/internal/domain/auth"
	domainlistings "rentboard/internal/domain/listings"
	"rentboard/internal/domain/messaging"
	domainuser "rentboard/internal/domain/user"
	"rentboard/internal/infra/storage/s3"
)

type errorCode string

const (
	codeInvalidRequest     errorCode = "invalid_request"
	codeAuthRequired       errorCode = "auth_required"
	codeForbidden          errorCode = "forbidden"
	codeInvalidCredentials errorCode = "invalid_credentials"
	codeSessionInvalid     errorCode = "session_invalid"
	codeEmailTaken         errorCode = "email_taken"
	codeEmailInvalid       errorCode = "email_invalid"
	codeNameRequired       errorCode = "name_required"
	codePasswordTooShort   errorCode = "password_too_short"
	codeInvalidRole        errorCode = "invalid_role"
	codeUserNotFound       errorCode = "user_not_found"
	codeListingNotFound    errorCode = "listing_not_found"
	codeListingInvalid     errorCode = "listing_invalid"
	codeListingInactive    errorCode = "listing_inactive"
	codeOwnerRoleRequired  errorCode = "owner_role_required"
	codeNoImages           errorCode = "no_images"
	codeStorageUnavailable errorCode = "storage_unavailable"
	codeThreadNotFound     errorCode = "thread_not_found"
	codeMessageNotFound    errorCode = "message_not_found"
	codeMessageInvalid     errorCode = "message_invalid"
	codeSameParticipant    errorCode = "same_participant"
	codeIdempotencyKey     errorCode = "idempotency_key_invalid"
	codeUnavailable        errorCode = "service_unavailable"
	codeInternal           errorCode = "internal"
)

type errorText struct {
	status int
	en     string
	sr     string
}

var errorTexts = map[errorCode]errorText{
	codeInvalidRequest:     {http.StatusBadRequest, "The request is malformed.", "Zahtev nije ispravan."},
	codeAuthRequired:       {http.StatusUnauthorized, "Please sign in.", "Molimo prijavite se."},
	codeForbidden:          {http.StatusForbidden, "Access denied.", "Pristup odbijen."},
	codeInvalidCredentials: {http.StatusUnauthorized, "Invalid email or password.", "Neispravna email adresa ili lozinka."},
	codeSessionInvalid:     {http.StatusUnauthorized, "Session expired. Please sign in again.", "Sesija je istekla. Molimo prijavite se ponovo."},
	codeEmailTaken:         {http.StatusConflict, "Email address is already registered.", "Email adresa je već registrovana."},
	codeEmailInvalid:       {http.StatusBadRequest, "Email address is not valid.", "Email adresa nije validna."},
	codeNameRequired:       {http.StatusBadRequest, "Name is required.", "Ime je obavezno."},
	codePasswordTooShort:   {http.StatusBadRequest, "Password must be at least 6 characters.", "Lozinka mora imati najmanje 6 karaktera."},
	codeInvalidRole:        {http.StatusBadRequest, "Unknown account type.", "Nepoznat tip naloga."},
	codeUserNotFound:       {http.StatusNotFound, "User not found.", "Korisnik nije pronađen."},
	codeListingNotFound:    {http.StatusNotFound, "Listing not found.", "Oglas nije pronađen."},
	codeListingInvalid:     {http.StatusBadRequest, "Listing data is not valid.", "Podaci oglasa nisu ispravni."},
	codeListingInactive:    {http.StatusConflict, "Listing is no longer active.", "Oglas više nije aktivan."},
	codeOwnerRoleRequired:  {http.StatusForbidden, "Only owners can publish listings.", "Samo vlasnici mogu objavljivati oglase."},
	codeNoImages:           {http.StatusBadRequest, "Select at least one image.", "Izaberite bar jednu sliku."},
	codeStorageUnavailable: {http.StatusServiceUnavailable, "Image storage is unavailable.", "Skladište slika je nedostupno."},
	codeThreadNotFound:     {http.StatusNotFound, "Conversation not found.", "Razgovor nije pronađen."},
	codeMessageNotFound:    {http.StatusNotFound, "Message not found.", "Poruka nije pronađena."},
	codeMessageInvalid:     {http.StatusBadRequest, "Message cannot be empty.", "Poruka ne može biti prazna."},
	codeSameParticipant:    {http.StatusBadRequest, "You cannot message yourself.", "Ne možete poslati poruku sebi."},
	codeIdempotencyKey:     {http.StatusBadRequest, "Idempotency key is too long.", "Ključ idempotentnosti je predugačak."},
	codeUnavailable:        {http.StatusServiceUnavailable, "Service temporarily unavailable.", "Servis je privremeno nedostupan."},
	codeInternal:           {http.StatusInternalServerError, "Something went wrong. Please try again.", "Došlo je do greške. Molimo pokušajte ponovo."},
}

// errorMapping is checked in order; the first matching sentinel wins.
var errorMapping = []struct {
	target error
	code   errorCode
}{
	{authsvc.ErrInvalidCredentials, codeInvalidCredentials},
	{authsvc.ErrPasswordTooShort, codePasswordTooShort},
	{domainauth.ErrSessionNotFound, codeSessionInvalid},
	{domainauth.ErrTokenRequired, codeAuthRequired},
	{domainuser.ErrEmailAlreadyUsed, codeEmailTaken},
	{domainuser.ErrEmailRequired, codeEmailInvalid},
	{domainuser.ErrEmailInvalid, codeEmailInvalid},
	{domainuser.ErrNameRequired, codeNameRequired},
	{domainuser.ErrInvalidRole, codeInvalidRole},
	{domainuser.ErrNotFound, codeUserNotFound},
	{catalog.ErrOwnerRoleRequired, codeOwnerRoleRequired},
	{catalog.ErrNoImages, codeNoImages},
	{catalog.ErrUploaderMissing, codeStorageUnavailable},
	{s3.ErrNotConfigured, codeStorageUnavailable},
	{domainlistings.ErrNotFound, codeListingNotFound},
	{domainlistings.ErrNotOwner, codeForbidden},
	{domainlistings.ErrInactive, codeListingInactive},
	{domainlistings.ErrTitleRequired, codeListingInvalid},
	{domainlistings.ErrCityRequired, codeListingInvalid},
	{domainlistings.ErrPriceInvalid, codeListingInvalid},
	{domainlistings.ErrPropertyTypeInvalid, codeListingInvalid},
	{domainlistings.ErrAmenityInvalid, codeListingInvalid},
	{domainlistings.ErrCoordinatesOutOfRange, codeListingInvalid},
	{domainlistings.ErrOwnerRequired, codeListingInvalid},
	{inbox.ErrViewerRequired, codeAuthRequired},
	{inbox.ErrThreadNotFound, codeThreadNotFound},
	{inbox.ErrListingUnavailable, codeListingNotFound},
	{inbox.ErrRecipientNotFound, codeUserNotFound},
	{inbox.ErrForbidden, codeForbidden},
	{messaging.ErrMessageNotFound, codeMessageNotFound},
	{messaging.ErrSameParticipant, codeSameParticipant},
	{messaging.ErrBodyRequired, codeMessageInvalid},
	{messaging.ErrListingRequired, codeMessageInvalid},
	{messaging.ErrRecipientRequired, codeMessageInvalid},
	{idempotency.ErrKeyTooLong, codeIdempotencyKey},
}

type errorResponse struct {
	Error   errorCode `json:"error"`
	Message string    `json:"message"`
}

func classify(err error) errorCode {
	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			return m.code
		}
	}
	return codeInternal
}

// respondError maps err onto a status and a localized notice. Unmapped errors are logged
// and reported as a generic failure so storage details never leak to clients.
func respondError(c *gin.Context, logger *slog.Logger, op string, err error) {
	code := classify(err)
	if code == codeInternal {
		_ = c.Error(err)
		if logger != nil {
			logger.Error(op+" failed", "error", err, "path", c.FullPath())
		}
	}
	abortWithCode(c, code)
}

func abortWithCode(c *gin.Context, code errorCode) {
	text, ok := errorTexts[code]
	if !ok {
		text = errorTexts[codeInternal]
	}
	message := text.en
	if preferredLocale(c.GetHeader("Accept-Language")) == "sr" {
		message = text.sr
	}
	c.AbortWithStatusJSON(text.status, errorResponse{Error: code, Message: message})
}

// localeTags lists what error texts exist for. Croatian and Bosnian readers get the
// Serbian texts; Serbian is also the fallback.
var (
	localeTags    = []language.Tag{language.Serbian, language.English, language.Croatian, language.MustParse("bs")}
	localeMatcher = language.NewMatcher(localeTags)
)

// preferredLocale picks "sr" or "en" from an Accept-Language header, honouring q-weights.
func preferredLocale(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return "sr"
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No || localeTags[idx] != language.English {
		return "sr"
	}
	return "en"
}
