package imap

import (
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMimeFromCodes(t *testing.T) {
	assert.Equal(t, "application/pdf", MimeFromCodes(TypeApplication, "PDF"))
	assert.Equal(t, "text/plain", MimeFromCodes(TypeText, "plain"))
	assert.Equal(t, "png", MimeFromCodes(TypeImage, "png"))
	assert.Equal(t, "application/octet-stream", MimeFromCodes(TypeApplication, ""))
	assert.Equal(t, TypeApplication, PrimaryTypeCode("APPLICATION"))
	assert.Equal(t, TypeOther, PrimaryTypeCode("x-custom"))
}

func TestEncodingCode(t *testing.T) {
	assert.Equal(t, EncodingBase64, EncodingCode("BASE64"))
	assert.Equal(t, EncodingQuotedPrintable, EncodingCode("quoted-printable"))
	assert.Equal(t, Encoding7Bit, EncodingCode(""))
	assert.Equal(t, EncodingOther, EncodingCode("x-uuencode"))
}

func TestAttachmentParts_NestedMultipart(t *testing.T) {
	bs := &imap.BodyStructure{
		MIMEType: "multipart", MIMESubType: "mixed",
		Parts: []*imap.BodyStructure{
			{
				MIMEType: "multipart", MIMESubType: "alternative",
				Parts: []*imap.BodyStructure{
					{MIMEType: "text", MIMESubType: "plain"},
					{MIMEType: "text", MIMESubType: "html"},
				},
			},
			{
				MIMEType: "application", MIMESubType: "pdf", Encoding: "BASE64", Size: 120,
				Disposition: "ATTACHMENT", DispositionParams: map[string]string{"filename": "a.pdf"},
			},
			{
				MIMEType: "image", MIMESubType: "png",
				Params: map[string]string{"NAME": "logo.png"},
			},
		},
	}

	parts := AttachmentParts(bs)

	require.Len(t, parts, 2)
	assert.Equal(t, "2", parts[0].Section)
	assert.Equal(t, "a.pdf", parts[0].Filename)
	assert.Equal(t, "application/pdf", parts[0].MimeType)
	assert.Equal(t, "base64", parts[0].Encoding)
	assert.Equal(t, int64(120), parts[0].Size)
	assert.Equal(t, "3", parts[1].Section)
	assert.Equal(t, "logo.png", parts[1].Filename)
	assert.Equal(t, "png", parts[1].MimeType)
}

func TestAttachmentParts_DeepSectionNumbers(t *testing.T) {
	bs := &imap.BodyStructure{
		MIMEType: "multipart", MIMESubType: "mixed",
		Parts: []*imap.BodyStructure{
			{MIMEType: "text", MIMESubType: "plain"},
			{
				MIMEType: "multipart", MIMESubType: "related",
				Parts: []*imap.BodyStructure{
					{MIMEType: "text", MIMESubType: "html"},
					{MIMEType: "application", MIMESubType: "pdf", Disposition: "inline"},
				},
			},
		},
	}

	parts := AttachmentParts(bs)

	require.Len(t, parts, 1)
	assert.Equal(t, "2.2", parts[0].Section)
}

func TestAttachmentParts_SinglePart(t *testing.T) {
	bs := &imap.BodyStructure{
		MIMEType: "application", MIMESubType: "pdf",
		Disposition: "attachment", DispositionParams: map[string]string{"filename": "only.pdf"},
	}

	parts := AttachmentParts(bs)

	require.Len(t, parts, 1)
	assert.Equal(t, "1", parts[0].Section)

	assert.Empty(t, AttachmentParts(&imap.BodyStructure{MIMEType: "text", MIMESubType: "plain"}))
	assert.Empty(t, AttachmentParts(nil))
}

func TestDecodeTransferEncoding(t *testing.T) {
	decoded, err := DecodeTransferEncoding("base64", []byte("JVBERi0xLjQK\r\nJSVFT0YK\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4\n%%EOF\n", string(decoded))

	decoded, err = DecodeTransferEncoding("Quoted-Printable", []byte("caf=C3=A9 =3D ok"))
	require.NoError(t, err)
	assert.Equal(t, "café = ok", string(decoded))

	decoded, err = DecodeTransferEncoding("7bit", []byte("as is"))
	require.NoError(t, err)
	assert.Equal(t, "as is", string(decoded))
}

func TestParseSection(t *testing.T) {
	path, err := ParseSection("1.2.3")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, path)

	_, err = ParseSection("1..2")
	assert.Error(t, err)
	_, err = ParseSection("0")
	assert.Error(t, err)
}
