package imap

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/pkg/errors"

	"github.com/customeros/lexsync/dto"
)

// Transfer encoding codes, classic c-client numbering.
const (
	Encoding7Bit = iota
	Encoding8Bit
	EncodingBinary
	EncodingBase64
	EncodingQuotedPrintable
	EncodingOther
)

// Primary body type codes, classic c-client numbering.
const (
	TypeText = iota
	TypeMultipart
	TypeMessage
	TypeApplication
	TypeAudio
	TypeImage
	TypeVideo
	TypeModel
	TypeOther
)

var primaryTypeCodes = map[string]int{
	"text":        TypeText,
	"multipart":   TypeMultipart,
	"message":     TypeMessage,
	"application": TypeApplication,
	"audio":       TypeAudio,
	"image":       TypeImage,
	"video":       TypeVideo,
	"model":       TypeModel,
}

func EncodingCode(encoding string) int {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "7bit":
		return Encoding7Bit
	case "8bit":
		return Encoding8Bit
	case "binary":
		return EncodingBinary
	case "base64":
		return EncodingBase64
	case "quoted-printable":
		return EncodingQuotedPrintable
	default:
		return EncodingOther
	}
}

func PrimaryTypeCode(mimeType string) int {
	if code, ok := primaryTypeCodes[strings.ToLower(mimeType)]; ok {
		return code
	}
	return TypeOther
}

// MimeFromCodes builds a mime string the way c-client style structures report it:
// application and text get their primary type, anything else only its subtype.
func MimeFromCodes(primary int, subtype string) string {
	sub := strings.ToLower(strings.TrimSpace(subtype))
	switch {
	case sub == "":
		return "application/octet-stream"
	case primary == TypeApplication:
		return "application/" + sub
	case primary == TypeText:
		return "text/" + sub
	default:
		return sub
	}
}

// AttachmentParts walks bs depth first and returns every leaf that looks like an attachment.
// Sections are dotted part numbers starting at 1; a single part message is section "1".
func AttachmentParts(bs *imap.BodyStructure) []dto.NativePart {
	if bs == nil {
		return nil
	}
	var parts []dto.NativePart
	if !isMultipart(bs) {
		if isAttachment(bs) {
			parts = append(parts, toNativePart(bs, "1", 0))
		}
		return parts
	}
	walkParts(bs, "", &parts)
	return parts
}

func walkParts(bs *imap.BodyStructure, prefix string, out *[]dto.NativePart) {
	for i, child := range bs.Parts {
		section := strconv.Itoa(i + 1)
		if prefix != "" {
			section = prefix + "." + section
		}
		if isMultipart(child) {
			walkParts(child, section, out)
			continue
		}
		if isAttachment(child) {
			*out = append(*out, toNativePart(child, section, len(*out)))
		}
	}
}

func isMultipart(bs *imap.BodyStructure) bool {
	return strings.EqualFold(bs.MIMEType, "multipart") || len(bs.Parts) > 0
}

func isAttachment(bs *imap.BodyStructure) bool {
	switch strings.ToLower(bs.Disposition) {
	case "attachment", "inline":
		return true
	}
	return paramValue(bs.DispositionParams, "filename") != "" || paramValue(bs.Params, "name") != ""
}

func toNativePart(bs *imap.BodyStructure, section string, index int) dto.NativePart {
	filename, err := bs.Filename()
	if err != nil || filename == "" {
		filename = paramValue(bs.DispositionParams, "filename")
		if filename == "" {
			filename = paramValue(bs.Params, "name")
		}
	}
	return dto.NativePart{
		Index:    index,
		Section:  section,
		Filename: filename,
		MimeType: MimeFromCodes(PrimaryTypeCode(bs.MIMEType), bs.MIMESubType),
		Encoding: strings.ToLower(bs.Encoding),
		Size:     int64(bs.Size),
	}
}

func paramValue(params map[string]string, key string) string {
	for k, v := range params {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// DecodeTransferEncoding decodes base64 and quoted-printable bodies, anything else is returned as is.
func DecodeTransferEncoding(encoding string, data []byte) ([]byte, error) {
	code := EncodingCode(encoding)
	if code != EncodingBase64 && code != EncodingQuotedPrintable {
		return data, nil
	}

	var h message.Header
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Transfer-Encoding", strings.ToLower(encoding))
	entity, err := message.New(h, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", encoding)
	}
	decoded, err := io.ReadAll(entity.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", encoding)
	}
	return decoded, nil
}

// ParseSection turns "1.2.3" into a body part path.
func ParseSection(section string) ([]int, error) {
	fields := strings.Split(section, ".")
	path := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 {
			return nil, errors.Errorf("invalid body section %q", section)
		}
		path = append(path, n)
	}
	return path, nil
}

// FetchSection reads BODY.PEEK[section] of uid, still transfer encoded. An empty section
// fetches the whole message.
func FetchSection(c *client.Client, uid uint32, section string) ([]byte, error) {
	name := &imap.BodySectionName{Peek: true}
	if section != "" {
		path, err := ParseSection(section)
		if err != nil {
			return nil, err
		}
		name.Path = path
	}

	msg, err := FetchOne(c, uid, []imap.FetchItem{name.FetchItem()})
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, errors.Errorf("message with UID %d not found", uid)
	}
	return firstBody(msg)
}

// FetchOne runs a UID FETCH for a single message.
func FetchOne(c *client.Client, uid uint32, items []imap.FetchItem) (*imap.Message, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var found *imap.Message
	for msg := range messages {
		if found == nil && (msg.Uid == uid || msg.Uid == 0) {
			found = msg
		}
	}
	if err := <-done; err != nil {
		return nil, errors.Wrapf(err, "fetch UID %d", uid)
	}
	return found, nil
}

func firstBody(msg *imap.Message) ([]byte, error) {
	for _, literal := range msg.Body {
		if literal == nil {
			continue
		}
		return io.ReadAll(literal)
	}
	return nil, errors.Errorf("no body section returned for UID %d", msg.Uid)
}
