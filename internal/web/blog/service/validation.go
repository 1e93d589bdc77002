package service

import (
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
	"github.com/Laisky/laisky-blog-rest/library/media"
)

const (
	// MaxPostPageSize caps the number of posts returned in one page.
	MaxPostPageSize = 200
	// maxPostTitleLength caps the length of post titles.
	maxPostTitleLength = 200
	// maxPostContentLength caps the length of post content.
	maxPostContentLength = 1 << 20
	// maxImageURLLength caps the length of linked image URLs.
	maxImageURLLength = 2048
	// maxImageDataURLLength fits a base64 encoded image of media.MaxImageSize.
	maxImageDataURLLength = media.MaxImageSize*4/3 + 128
	// maxUserEmailLength caps the length of emails.
	maxUserEmailLength = 254
	// minUserPasswordLength is the shortest accepted password.
	minUserPasswordLength = 4
	// maxUserPasswordLength caps passwords, bcrypt ignores bytes after 72.
	maxUserPasswordLength = 72
	// maxUserNameLength caps the length of display names.
	maxUserNameLength = 128
)

// sanitizeOptionalText trims input, rejects null bytes and enforces maxLen runes.
func sanitizeOptionalText(input string, maxLen int, field string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", nil
	}
	if strings.ContainsRune(trimmed, '\x00') {
		return "", errors.Errorf("%s contains invalid null byte", field)
	}
	if utf8.RuneCountInString(trimmed) > maxLen {
		return "", errors.Errorf("%s exceeds max length %d", field, maxLen)
	}
	return trimmed, nil
}

// sanitizeRequiredText is sanitizeOptionalText that also rejects blank input.
func sanitizeRequiredText(input string, maxLen int, field string) (string, error) {
	trimmed, err := sanitizeOptionalText(input, maxLen, field)
	if err != nil {
		return "", err
	}
	if trimmed == "" {
		return "", errors.Errorf("%s is required", field)
	}
	return trimmed, nil
}

// invalid wraps a validation failure into sentinel
func invalid(sentinel, err error) error {
	return errors.Wrap(sentinel, err.Error())
}

// sanitizeImage accepts an empty value, an image data URL or an http(s) URL.
func sanitizeImage(image string) (string, error) {
	image = strings.TrimSpace(image)
	switch {
	case image == "":
		return "", nil
	case media.IsDataURL(image):
		if len(image) > maxImageDataURLLength {
			return "", errors.Errorf("image exceeds %d bytes", media.MaxImageSize)
		}
		if _, _, err := media.DecodeDataURL(image); err != nil {
			return "", err
		}
		return image, nil
	}

	if len(image) > maxImageURLLength {
		return "", errors.Errorf("image url exceeds max length %d", maxImageURLLength)
	}
	u, err := url.ParseRequestURI(image)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errors.New("image must be a data url or an http(s) url")
	}
	return image, nil
}

// sanitizePostBody validates the user editable fields of p in place
func sanitizePostBody(p *model.Post) error {
	title, err := sanitizeRequiredText(p.Title, maxPostTitleLength, "title")
	if err != nil {
		return invalid(model.ErrInvalidPost, err)
	}
	if strings.ContainsRune(p.Content, '\x00') {
		return invalid(model.ErrInvalidPost, errors.New("content contains invalid null byte"))
	}
	if len(p.Content) > maxPostContentLength {
		return invalid(model.ErrInvalidPost, errors.Errorf("content exceeds %d bytes", maxPostContentLength))
	}
	image, err := sanitizeImage(p.Image)
	if err != nil {
		return invalid(model.ErrInvalidPost, err)
	}

	p.Title = title
	p.Image = image
	return nil
}

// sanitizeListOptions validates page and limit bounds
func sanitizeListOptions(opt model.ListOptions) (model.ListOptions, error) {
	if opt.Page < 0 {
		return opt, invalid(model.ErrInvalidQuery, errors.New("page must be non-negative"))
	}
	if opt.Limit < 0 || opt.Limit > MaxPostPageSize {
		return opt, invalid(model.ErrInvalidQuery, errors.Errorf("limit must be within [0~%d]", MaxPostPageSize))
	}
	if opt.Page > 0 && opt.Limit == 0 {
		opt.Limit = 10
	}

	opt.AuthorID = strings.TrimSpace(opt.AuthorID)
	opt.UserID = strings.TrimSpace(opt.UserID)
	return opt, nil
}

// sanitizeEmail trims, validates and lower-cases an email address.
func sanitizeEmail(email string) (string, error) {
	trimmed, err := sanitizeRequiredText(email, maxUserEmailLength, "email")
	if err != nil {
		return "", err
	}
	parsed, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", errors.Wrap(err, "invalid email")
	}
	if parsed.Address != trimmed {
		return "", errors.New("email must be a bare address")
	}
	return strings.ToLower(parsed.Address), nil
}

// sanitizeUserPassword checks the password length without trimming it.
func sanitizeUserPassword(password string) (string, error) {
	if utf8.RuneCountInString(password) < minUserPasswordLength {
		return "", errors.Errorf("password must be at least %d characters", minUserPasswordLength)
	}
	if len(password) > maxUserPasswordLength {
		return "", errors.Errorf("password exceeds max length %d", maxUserPasswordLength)
	}
	return password, nil
}

// sanitizeUserName validates an optional display name.
func sanitizeUserName(name string) (string, error) {
	return sanitizeOptionalText(name, maxUserNameLength, "name")
}
